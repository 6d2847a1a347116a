package update

// Kind is the closed set of action kinds. The kind is the action's name in
// logs, metrics and rendered trees.
type Kind int

const (
	KindUpdateRequest Kind = iota + 1
	KindValidateOperation
	KindAuthenticateUser
	KindValidateSchema
	KindValidateRecord
	KindDoubleRecordFrontendAndValidate
	KindUpdateOperation
	KindAuthenticateRecord
	KindDoubleRecordFrontend
	KindDoubleRecordChecking
	KindUpdateCommon
	KindUpdateRecord
	KindCreateRecord
	KindOverwriteRecord
	KindDeleteCommon
	KindUpdateEnrichment
	KindUpdateLocal
	KindCreateEnrichmentWithClassifications
	KindUpdateClassificationsInEnrichment
	KindMoveEnrichment
	KindCreateEnrichmentForLinkedRecords
	KindMarkMergedSource
	KindStore
	KindDelete
	KindLink
	KindLinkAuthority
	KindRemoveLinks
	KindEnqueue
	KindEnqueuePHHoldings

	kindEnd
)

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindEnd-1)
	for k := KindUpdateRequest; k < kindEnd; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= KindUpdateRequest && k < kindEnd
}

// String returns the action name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUpdateRequest:
		return "UpdateRequest"
	case KindValidateOperation:
		return "ValidateOperation"
	case KindAuthenticateUser:
		return "AuthenticateUser"
	case KindValidateSchema:
		return "ValidateSchema"
	case KindValidateRecord:
		return "ValidateRecord"
	case KindDoubleRecordFrontendAndValidate:
		return "DoubleRecordFrontendAndValidate"
	case KindUpdateOperation:
		return "UpdateOperation"
	case KindAuthenticateRecord:
		return "AuthenticateRecord"
	case KindDoubleRecordFrontend:
		return "DoubleRecordFrontend"
	case KindDoubleRecordChecking:
		return "DoubleRecordChecking"
	case KindUpdateCommon:
		return "UpdateCommon"
	case KindUpdateRecord:
		return "UpdateRecord"
	case KindCreateRecord:
		return "CreateRecord"
	case KindOverwriteRecord:
		return "OverwriteRecord"
	case KindDeleteCommon:
		return "DeleteCommon"
	case KindUpdateEnrichment:
		return "UpdateEnrichment"
	case KindUpdateLocal:
		return "UpdateLocal"
	case KindCreateEnrichmentWithClassifications:
		return "CreateEnrichmentWithClassifications"
	case KindUpdateClassificationsInEnrichment:
		return "UpdateClassificationsInEnrichment"
	case KindMoveEnrichment:
		return "MoveEnrichment"
	case KindCreateEnrichmentForLinkedRecords:
		return "CreateEnrichmentForLinkedRecords"
	case KindMarkMergedSource:
		return "MarkMergedSource"
	case KindStore:
		return "Store"
	case KindDelete:
		return "Delete"
	case KindLink:
		return "Link"
	case KindLinkAuthority:
		return "LinkAuthority"
	case KindRemoveLinks:
		return "RemoveLinks"
	case KindEnqueue:
		return "Enqueue"
	case KindEnqueuePHHoldings:
		return "EnqueuePHHoldings"
	}
	return "Unknown"
}

// Variant selects the single or volume assembly of a lifecycle step.
type Variant int

const (
	Single Variant = iota
	Volume
)

// VariantOf returns Volume for records that declare a parent.
func VariantOf(hasParent bool) Variant {
	if hasParent {
		return Volume
	}
	return Single
}

func (v Variant) String() string {
	if v == Volume {
		return "volume"
	}
	return "single"
}
