package constants

// ScheduleColumns is the canonical six-column legal progress-schedule header.
// Tables with exactly this many columns are renamed positionally.
var ScheduleColumns = []string{
	"Sr. No.",
	"Activity",
	"Baseline Date (BL)",
	"Dates as per Update",
	"Delay w.r.t. Baseline & Update",
	"Remarks",
}

// Entity categories produced by the linguistic and domain NER models.
const (
	EntityOrg   = "ORG"
	EntityParty = "PARTY"
	EntityGPE   = "GPE"
)

// Region types returned by the layout engine.
const (
	RegionText  = "text"
	RegionTable = "table"
)

// Pipeline stage names used in progress reporting and logs.
const (
	StageText     = "text"
	StageOCR      = "ocr"
	StageMetadata = "metadata"
)
