package safety

// Reassure returns the fixed calming line spoken for a severity level.
func Reassure(level Level) string {
	switch level {
	case LevelEmergency:
		return "I'm here with you... help is on the way. You're not alone. Just breathe slowly with me... in and out... you're doing great."
	case LevelUrgent:
		return "It's okay... let's take this slowly. I've let your care circle know. Just focus on resting for now... everything will be alright."
	case LevelConcern:
		return "I hear you... it's okay to not feel your best. I'm here with you. Would talking help right now?"
	default:
		return "I'm here with you... everything is okay."
	}
}
