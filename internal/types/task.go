package types

// TaskType describes the kind of work a model is able to serve.
type TaskType string

const (
	TaskDialog TaskType = "dialog"
	TaskCoding TaskType = "coding"
	TaskVision TaskType = "vision"
)

func ParseTaskType(s string) (TaskType, bool) {
	switch TaskType(s) {
	case TaskDialog, TaskCoding, TaskVision:
		return TaskType(s), true
	default:
		return "", false
	}
}
