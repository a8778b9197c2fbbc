package mqtt

import "fmt"

// TopicPrefix is the base for all screenlogic topics.
const TopicPrefix = "screenlogic"

// Topics provides builders for screenlogic MQTT topics. Using these
// helpers keeps topic naming consistent across publishers and
// subscribers.
type Topics struct{}

// SystemStatus returns the retained core status topic.
//
// Example: screenlogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}

// DisplayResult returns the retained last-result topic for one display.
//
// Example: screenlogic/result/lobby-tv
func (Topics) DisplayResult(name string) string {
	return fmt.Sprintf("%s/result/%s", TopicPrefix, name)
}

// PowerCommand returns the inbound power command topic.
//
// Example: screenlogic/command/power
func (Topics) PowerCommand() string {
	return fmt.Sprintf("%s/command/power", TopicPrefix)
}

// AllResults returns a pattern matching every display result topic.
//
// Pattern: screenlogic/result/+
func (Topics) AllResults() string {
	return fmt.Sprintf("%s/result/+", TopicPrefix)
}
