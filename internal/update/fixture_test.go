package update

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/classification"
	"github.com/roach88/recordupdate/internal/doublerecord"
	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/messages"
	"github.com/roach88/recordupdate/internal/search"
	"github.com/roach88/recordupdate/internal/store"
	"github.com/roach88/recordupdate/internal/testutil"
	"github.com/roach88/recordupdate/internal/validate"
)

// testNow is a Friday outside any production week used in the fixtures.
var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// stubChecker answers the duplicate check with a fixed verdict and records
// the calls.
type stubChecker struct {
	mu        sync.Mutex
	verdict   doublerecord.Verdict
	err       error
	frontends int
	notified  []marc.RecordID
}

func (c *stubChecker) Frontend(context.Context, *marc.Record) (doublerecord.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frontends++
	return c.verdict, c.err
}

func (c *stubChecker) Notify(_ context.Context, rec *marc.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notified = append(c.notified, rec.ID())
	return c.err
}

// countingRepo counts the repository reads made through it.
type countingRepo struct {
	Repository
	reads int
}

func (r *countingRepo) Exists(ctx context.Context, id marc.RecordID) (bool, error) {
	r.reads++
	return r.Repository.Exists(ctx, id)
}

func (r *countingRepo) ExistsMaybeDeleted(ctx context.Context, id marc.RecordID) (bool, error) {
	r.reads++
	return r.Repository.ExistsMaybeDeleted(ctx, id)
}

func (r *countingRepo) FetchContent(ctx context.Context, id marc.RecordID) (*marc.Record, error) {
	r.reads++
	return r.Repository.FetchContent(ctx, id)
}

func (r *countingRepo) Children(ctx context.Context, id marc.RecordID) ([]marc.RecordID, error) {
	r.reads++
	return r.Repository.Children(ctx, id)
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *store.Store
	clock   *testutil.FixedClock
	checker *stubChecker
	env     *Env
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := testutil.OpenStore(t)
	clock := testutil.NewFixedClock(testNow)
	templates, err := validate.Default()
	require.NoError(t, err)
	checker := &stubChecker{verdict: doublerecord.Verdict{Status: doublerecord.StatusOK}}

	env := &Env{
		Repo:          s,
		Holdings:      s,
		Rules:         librules.Default(),
		Index:         search.NewStoreIndex(s),
		DoubleRecords: checker,
		Keys:          doublerecord.NewKeys(s, testutil.NewSequenceGenerator("key"), clock, 0),
		Auth:          auth.New(s),
		Templates:     templates,
		Messages:      messages.Default(),
		Enrichments:   classification.NewBuilder(classification.WithNow(clock.Now)),
		Settings:      DefaultSettings(),
	}
	require.NoError(t, env.Validate())
	return &fixture{t: t, ctx: context.Background(), store: s, clock: clock, checker: checker, env: env}
}

// record parses lines into a record.
func (f *fixture) record(lines string) *marc.Record {
	f.t.Helper()
	return testutil.Record(f.t, lines)
}

// seed stores lines as a live record with the mime type of its agency.
func (f *fixture) seed(lines string) *marc.Record {
	f.t.Helper()
	rec := f.record(lines)
	testutil.Seed(f.t, f.store, rec, MimeTypeFor(rec.AgencyIDInt()), testNow.AddDate(0, -1, 0))
	return rec
}

// seedEnrichment stores lines as an enrichment linked to its common record.
func (f *fixture) seedEnrichment(lines string) *marc.Record {
	f.t.Helper()
	rec := f.record(lines)
	testutil.Seed(f.t, f.store, rec, MimeEnrichment, testNow.AddDate(0, -1, 0))
	require.NoError(f.t, f.store.Link(f.ctx, rec.ID(), marc.NewRecordID(rec.RecordID(), CommonAgency)))
	return rec
}

func (f *fixture) link(from, to marc.RecordID) {
	f.t.Helper()
	require.NoError(f.t, f.store.Link(f.ctx, from, to))
}

func (f *fixture) holdings(id string, agencies ...int) {
	f.t.Helper()
	for _, a := range agencies {
		require.NoError(f.t, f.store.AddHoldings(f.ctx, id, a))
	}
}

func (f *fixture) addUser(user, group, password string) {
	f.t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.PutUser(f.ctx, user, group, hash))
}

// rc builds the request context of group acting on rec.
func (f *fixture) rc(group string, rec *marc.Record) RequestContext {
	f.t.Helper()
	g, err := f.env.Rules.LibraryGroup(f.ctx, group)
	require.NoError(f.t, err)
	creds := auth.Credentials{User: "tester", Group: group, Password: "secret"}
	return NewRequestContext("track-1", creds, "allowall", rec, g, f.clock.Now())
}

func (f *fixture) engine() *engine.Engine {
	return engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		engine.WithClock(f.clock),
	)
}

// run executes a tree and fails the test on a runtime error.
func (f *fixture) run(a engine.Action) *engine.Execution {
	f.t.Helper()
	exec, err := f.engine().Execute(f.ctx, a)
	require.NoError(f.t, err)
	return exec
}

func (f *fixture) service() *Service {
	f.t.Helper()
	svc, err := NewService(f.env,
		WithEngine(f.engine()),
		WithClock(f.clock),
		WithIDGenerator(testutil.NewSequenceGenerator("track")),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	require.NoError(f.t, err)
	return svc
}

func (f *fixture) exists(id string, agency int) bool {
	f.t.Helper()
	ok, err := f.store.Exists(f.ctx, marc.NewRecordID(id, agency))
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) content(id string, agency int) *marc.Record {
	f.t.Helper()
	rec, err := f.store.FetchContent(f.ctx, marc.NewRecordID(id, agency))
	require.NoError(f.t, err)
	return rec
}
