package domain

// Constructors for ModuleContent variants. Each returns a complete record with only the
// matching variant set.

func NewVideoContent(id, moduleID, title string, order int, url string, durationSeconds int) ModuleContent {
	return ModuleContent{
		ID:         id,
		ModuleID:   moduleID,
		Title:      title,
		Type:       ContentVideo,
		OrderIndex: order,
		Video:      &VideoContent{URL: url, DurationSeconds: durationSeconds},
	}
}

func NewFileContent(id, moduleID, title string, order int, url string) ModuleContent {
	return ModuleContent{
		ID:         id,
		ModuleID:   moduleID,
		Title:      title,
		Type:       ContentFile,
		OrderIndex: order,
		File:       &FileContent{URL: url},
	}
}

func NewQuizContent(id, moduleID, title string, order int, quizID string) ModuleContent {
	return ModuleContent{
		ID:         id,
		ModuleID:   moduleID,
		Title:      title,
		Type:       ContentQuiz,
		OrderIndex: order,
		Quiz:       &QuizContent{QuizID: quizID},
	}
}
