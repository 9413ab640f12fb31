package chrono

// NotificationLevel classifies a user-facing notification.
type NotificationLevel int

const (
	NotifyInfo NotificationLevel = iota
	NotifyLoading
	NotifySuccess
	NotifyError
)

func (l NotificationLevel) String() string {
	switch l {
	case NotifyLoading:
		return "loading"
	case NotifySuccess:
		return "success"
	case NotifyError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a short human-readable message for the presentation layer.
// Notifications sharing a Key replace each other (a loading message followed
// by its success or error outcome).
type Notification struct {
	Level   NotificationLevel
	Key     string
	Message string
}

// Notifier delivers notifications to whoever is presenting the core.
// Failures are reported here in addition to the returned error so that the
// presentation layer can surface them without inspecting error chains.
type Notifier interface {
	Notify(n Notification)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func NewNopNotifier() *NopNotifier { return &NopNotifier{} }

func (*NopNotifier) Notify(Notification) {}
