package cache

// Key identifies one cached query. Keys embed the workshop id (and user id
// where the query is user-scoped) so entries from different workshops can
// never collide.
type Key string

func WorkshopKey(workshopID string) Key {
	return Key("workshop:" + workshopID)
}

func TracesKey(workshopID string) Key {
	return Key("traces:" + workshopID)
}

func TracesForAlignmentKey(workshopID string) Key {
	return Key("traces-for-alignment:" + workshopID)
}

func AnnotationsKey(workshopID, userID string) Key {
	return Key("annotations:" + workshopID + ":" + userID)
}

func FindingsKey(workshopID, userID string) Key {
	return Key("findings:" + workshopID + ":" + userID)
}

func AllFindingsKey(workshopID string) Key {
	return Key("all-findings:" + workshopID)
}

func AllFindingsWithDetailsKey(workshopID string) Key {
	return Key("all-findings-details:" + workshopID)
}

func CompletionStatusKey(workshopID string) Key {
	return Key("completion-status:" + workshopID)
}

func UserCompletionKey(workshopID, userID string) Key {
	return Key("user-completion:" + workshopID + ":" + userID)
}

func RubricKey(workshopID string) Key {
	return Key("rubric:" + workshopID)
}

func IRRKey(workshopID string) Key {
	return Key("irr:" + workshopID)
}

func JudgePromptsKey(workshopID string) Key {
	return Key("judge-prompts:" + workshopID)
}

func JudgeEvaluationsKey(promptID string) Key {
	return Key("judge-evaluations:" + promptID)
}
