package output

import (
	"github.com/go-vgo/robotgo"
)

// RobotgoBackend wraps go-vgo/robotgo for production clipboard and
// keystroke injection.
type RobotgoBackend struct{}

// NewRobotgoBackend constructs a production Backend.
func NewRobotgoBackend() RobotgoBackend { return RobotgoBackend{} }

func (RobotgoBackend) ReadClipboard() (string, error) {
	return robotgo.ReadAll()
}

func (RobotgoBackend) WriteClipboard(text string) error {
	return robotgo.WriteAll(text)
}

func (RobotgoBackend) SendPaste() error {
	return robotgo.KeyTap("v", pasteModifier())
}

// FocusedAppName reports the active window's owning process name so
// Injector.ShouldAutoPaste can detect "focus is this app".
func (RobotgoBackend) FocusedAppName() string {
	pid := robotgo.GetPid()
	name, err := robotgo.FindName(pid)
	if err != nil {
		return ""
	}
	return name
}
