package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStops(t *testing.T) {
	tests := []struct {
		name string
		r    *Result
		want bool
	}{
		{"ok", OK(), false},
		{"warning only", Warning("careful"), false},
		{"failed status", WithStatus(StatusFailed), true},
		{"error entry with ok status", &Result{Status: StatusOK, Entries: []Entry{{Severity: SeverityError, Message: "x"}}}, true},
		{"fatal entry", Fatal(StatusInternalError, "boom"), true},
		{"double record", DoubleRecord(Candidate{PID: "870970-basis:1", Message: "dup"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Stops())
		})
	}
}

func TestMerge_ConcatenatesAndTakesNonOKStatus(t *testing.T) {
	r := Warning("first")
	r.Merge(Error(StatusFailed, "second"))
	r.Merge(Warning("third"))

	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, []string{"first", "second", "third"}, r.Messages())
}

func TestMerge_TakesLaterNonOKStatus(t *testing.T) {
	r := OK()
	r.Merge(WithStatus(StatusValidationError))
	r.Merge(WithStatus(StatusAuthFailed))
	assert.Equal(t, StatusAuthFailed, r.Status)
}

func TestMerge_DoubleRecordKey(t *testing.T) {
	r := OK()
	r.Merge(&Result{Status: StatusDoubleRecord, DoubleRecordKey: "k1"})
	r.Merge(OK())
	assert.Equal(t, "k1", r.DoubleRecordKey)
	assert.Equal(t, StatusDoubleRecord, r.Status)
}

func TestMerge_Nil(t *testing.T) {
	r := OK()
	r.Merge(nil)
	assert.True(t, r.IsOK())
}

func TestAuthError_DefaultMessage(t *testing.T) {
	r := AuthError("")
	assert.Equal(t, StatusAuthFailed, r.Status)
	assert.Equal(t, []string{"Authentication error"}, r.Messages())
}

func TestCandidates(t *testing.T) {
	r := DoubleRecord(Candidate{PID: "a", Message: "m1"})
	r.Merge(DoubleRecord(Candidate{PID: "b", Message: "m2"}))
	assert.Equal(t, []Candidate{{PID: "a", Message: "m1"}, {PID: "b", Message: "m2"}}, r.Candidates())
}

func TestString(t *testing.T) {
	assert.Equal(t, "ok", OK().String())
	assert.Equal(t, "failed: nope", Error(StatusFailed, "nope").String())
}
