package store

import "fmt"

// Record path builders. The path layout mirrors the logical collections:
// everything workflow-related nests under its protocol, assessment forms
// nest under the assignment that owns them.

func ProtocolPath(protocolID string) string {
	return fmt.Sprintf("protocols/%s", protocolID)
}

func DocumentPath(protocolID, documentID string) string {
	return fmt.Sprintf("protocols/%s/documents/%s", protocolID, documentID)
}

func AssignmentPath(protocolID, assignmentID string) string {
	return fmt.Sprintf("protocols/%s/assignments/%s", protocolID, assignmentID)
}

func FormPath(protocolID, assignmentID, formType string) string {
	return fmt.Sprintf("protocols/%s/assignments/%s/forms/%s", protocolID, assignmentID, formType)
}

func HistoryPath(protocolID, entryID string) string {
	return fmt.Sprintf("protocols/%s/history/%s", protocolID, entryID)
}

func DecisionPath(protocolID, decisionID string) string {
	return fmt.Sprintf("protocols/%s/decisions/%s", protocolID, decisionID)
}

func NotificationPath(userID, notificationID string) string {
	return fmt.Sprintf("users/%s/notifications/%s", userID, notificationID)
}

func SettingsPath(userID, name string) string {
	return fmt.Sprintf("users/%s/settings/%s", userID, name)
}
