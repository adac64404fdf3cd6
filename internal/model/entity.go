package model

// Status values attached transiently by the differ. A document at rest
// carries none of them.
const (
	StatusNew     = "new"
	StatusUpdated = "updated"
	StatusRemoved = "removed"
)

// PropertyGroup collects every resolved value of one property on an entity.
// Groups that resolve to zero values are never persisted.
type PropertyGroup struct {
	Key      string         `json:"key"`
	Property *EntitySummary `json:"property,omitempty"`
	Values   []Value        `json:"values"`

	// Status is set transiently by the differ.
	Status string `json:"status,omitempty"`
}

// Publication is one row of a publications override feed.
type Publication struct {
	Title   string `json:"title,omitempty"`
	Date    string `json:"date,omitempty"`
	Link    string `json:"link,omitempty"`
	Journal string `json:"journal,omitempty"`
	Role    string `json:"role,omitempty"`
	Authors string `json:"authors,omitempty"`
}

// EntityDocument is the unit of persistence: one self-contained normalized
// document per top-level entity, overwritten wholesale on each build.
type EntityDocument struct {
	ID          string                   `json:"id"`
	Description string                   `json:"description"`
	Label       string                   `json:"label"`
	Biography   string                   `json:"biographyMarkdown,omitempty"`
	Publications []Publication           `json:"publications,omitempty"`
	Properties  map[string]PropertyGroup `json:"properties"`

	// Transient diff annotations. The document itself is tagged new when no
	// remote baseline exists; singleton fields get their own named flags.
	Status             string `json:"status,omitempty"`
	LabelStatus        string `json:"labelStatus,omitempty"`
	DescriptionStatus  string `json:"descriptionStatus,omitempty"`
	BiographyStatus    string `json:"biographyMarkdownStatus,omitempty"`
	PublicationsStatus string `json:"publicationsStatus,omitempty"`
}

// IndexEntry is one row of the flat entity index used for listing and
// browsing. Properties are restricted to a fixed display subset with
// qualifiers and references stripped.
type IndexEntry struct {
	ID          string                   `json:"id"`
	Description string                   `json:"description"`
	Label       string                   `json:"label"`
	Properties  map[string]PropertyGroup `json:"properties"`

	Status string `json:"status,omitempty"`
}

// IndexProperties is the fixed subset of property keys materialized on index
// rows: birth and death dates and places, image, and education.
var IndexProperties = []string{"P569", "P19", "P570", "P20", "P18", "P69"}

// RelationProperties maps the family-relation property keys that are
// consolidated into the synthetic "relative" group to their relation names.
var RelationProperties = map[string]string{
	"P22":   "father",
	"P25":   "mother",
	"P26":   "spouse",
	"P3373": "sibling",
	"P8810": "parent",
}

// RelativeGroupKey is the key of the synthetic consolidated relation group.
const RelativeGroupKey = "relative"

// KinshipQualifierKey is the property used for the synthetic qualifier that
// records which relation a consolidated relative came from.
const KinshipQualifierKey = "P1039"

// KinshipQualifierLabel is the display label for the synthetic qualifier.
const KinshipQualifierLabel = "kinship to subject"

// SummaryValueProperties is the fixed value-bearing property set attached to
// entity summaries (coordinate location only), bounding recursion to one hop.
var SummaryValueProperties = []string{"P625"}

// InstanceOfProperty is the property key resolved into summary instance_of
// labels.
const InstanceOfProperty = "P31"
