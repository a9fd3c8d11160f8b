package mqtt

import "fmt"

// Topic prefixes for the PulseGrid message bus.
//
// Controller command/response/notify topics are owned by the remote
// package, which builds them per device. This package only owns the
// system-level topics Core itself publishes to.
const (
	// TopicPrefix is the base for all PulseGrid topics.
	TopicPrefix = "pulsegrid"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "pulsegrid/system"

	// TopicPrefixCore is the base for core topics.
	TopicPrefixCore = "pulsegrid/core"
)

// Topics provides builders for PulseGrid system MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// SystemStatus returns the topic for Core online/offline status.
// Used for the LWT message and graceful shutdown notices.
//
// Example: pulsegrid/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// CoreEvent returns the topic for core event broadcasts of a given kind.
//
// Example: pulsegrid/core/event/run_started
func (Topics) CoreEvent(kind string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, kind)
}

// AllControllerNotifications returns a wildcard matching completion
// notifications from every controller.
//
// Example: pulsegrid/notify/+
func (Topics) AllControllerNotifications() string {
	return fmt.Sprintf("%s/notify/+", TopicPrefix)
}
