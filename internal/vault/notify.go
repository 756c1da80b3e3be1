package vault

// Level classifies a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is one user-visible notification.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notices raised by the flows.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Notices buffers notices in arrival order.
type Notices struct {
	items []Notice
}

func (n *Notices) Notify(notice Notice) {
	n.items = append(n.items, notice)
}

// Drain returns the buffered notices and clears the buffer.
func (n *Notices) Drain() []Notice {
	items := n.items
	n.items = nil
	return items
}

func notifyError(n Notifier, message string) {
	if n != nil {
		n.Notify(Notice{Level: LevelError, Message: message})
	}
}

func notifySuccess(n Notifier, message string) {
	if n != nil {
		n.Notify(Notice{Level: LevelSuccess, Message: message})
	}
}
