package dispatch

// Stage is a step of the per-request lifecycle:
//
//	CapabilitiesSelected -> DataGathered -> Validated -> UIReady
//	                                     \-> Invalid -> FollowUpAsked
type Stage string

const (
	StageCapabilitiesSelected Stage = "capabilities_selected"
	StageDataGathered         Stage = "data_gathered"
	StageValidated            Stage = "validated"
	StageUIReady              Stage = "ui_ready"
	StageInvalid              Stage = "invalid"
	StageFollowUpAsked        Stage = "follow_up_asked"
)

// Terminal reports whether no further transition follows s.
func (s Stage) Terminal() bool {
	return s == StageUIReady || s == StageFollowUpAsked
}
