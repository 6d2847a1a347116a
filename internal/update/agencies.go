package update

import "slices"

// Agencies with a fixed role in the catalog.
const (
	CommonAgency       = 870970
	DBCEnrichment      = 191919
	ArticleAgency      = 870971
	LittolkAgency      = 870974
	HostpubAgency      = 870975
	MatvurdAgency      = 870976
	AuthorityAgency    = 870979
	RetroAgency        = 870973
	SchoolCommonAgency = 300000
	MinSchoolAgency    = 300001
	MaxSchoolAgency    = 399999
)

// DBCAgencies own common records. Records of these agencies are updated
// through UpdateCommon.
var DBCAgencies = []int{
	CommonAgency, ArticleAgency, RetroAgency, LittolkAgency, HostpubAgency,
	MatvurdAgency, 870978, AuthorityAgency, 190002, 190004, 190007, 190008,
}

// dbcPrivateAgencies are the DBC agencies other than the common agency.
var dbcPrivateAgencies = DBCAgencies[1:]

// stampedAgencies get 001c set whenever their records are stored.
var stampedAgencies = []int{190002, 190004, DBCEnrichment, CommonAgency, ArticleAgency, LittolkAgency, AuthorityAgency}

// Mime types of stored records.
const (
	MimeMarcXChange  = "text/marcxchange"
	MimeEnrichment   = "text/enrichment+marcxchange"
	MimeArticle      = "text/article+marcxchange"
	MimeAuthority    = "text/authority+marcxchange"
	MimeLittolk      = "text/litanalysis+marcxchange"
	MimeMatvurd      = "text/matvurd+marcxchange"
	MimeHostpub      = "text/hostpub+marcxchange"
	MimeSimple       = "text/simple+marcxchange"
	ownerDBC         = "DBC"
	ownerRET         = "RET"
	ownerFreeLibrary = "700300"
)

// simpleAgencies store records in the simple format.
var simpleAgencies = []int{190007, 190008}

// authorityFields are the fields that may refer to an authority record in
// subfields 5 (id) and 6 (agency).
var authorityFields = []string{"100", "110", "233", "234", "600", "610", "700", "710", "770", "780", "845", "846", "900", "910"}

// IsDBCAgency reports whether agency owns common records.
func IsDBCAgency(agency int) bool {
	return slices.Contains(DBCAgencies, agency)
}

// IsSchoolAgency reports whether agency is a school library.
func IsSchoolAgency(agency int) bool {
	return agency >= MinSchoolAgency && agency <= MaxSchoolAgency
}

// MimeTypeFor returns the mime type of a marcxchange record stored under
// agency.
func MimeTypeFor(agency int) string {
	switch {
	case agency == ArticleAgency || agency == RetroAgency:
		return MimeArticle
	case agency == AuthorityAgency:
		return MimeAuthority
	case agency == LittolkAgency:
		return MimeLittolk
	case agency == MatvurdAgency:
		return MimeMatvurd
	case agency == HostpubAgency:
		return MimeHostpub
	case slices.Contains(simpleAgencies, agency):
		return MimeSimple
	}
	return MimeMarcXChange
}
