package events

const (
	StreamName   = "MIVES_EVENTS"
	StreamMaxAge = "168h" // 7 days

	SubjectTreeAny       = "mives.tree.>"
	SubjectEvaluationAny = "mives.evaluation.>"
)

func SubjectTreeCreated(treeID string) string { return "mives.tree." + treeID + ".created" }
func SubjectTreeUpdated(treeID string) string { return "mives.tree." + treeID + ".updated" }
func SubjectTreeDeleted(treeID string) string { return "mives.tree." + treeID + ".deleted" }

func SubjectScenarioCreated(scenarioID string) string {
	return "mives.scenario." + scenarioID + ".created"
}

func SubjectEvaluationCompleted(evalID string) string {
	return "mives.evaluation." + evalID + ".completed"
}
func SubjectEvaluationFailed(treeID string) string {
	return "mives.evaluation." + treeID + ".failed"
}
