package host

// Structured log keys.
const (
	fieldEntry    = "entry"
	fieldContract = "contract"
	fieldCaller   = "caller"
	fieldKind     = "kind"
	fieldMethod   = "method"
	fieldDepth    = "depth"
	fieldStatic   = "static"
	fieldGasUsed  = "gas_used"
	fieldBudget   = "budget"
	fieldCode     = "code"
	fieldError    = "error"
	fieldFrames   = "frames"
	fieldDuration = "duration"
)

// Entry points, used as log values and metric labels.
const (
	entryExecute = "execute"
	entryQuery   = "query"
	entryDeploy  = "deploy"
)
