// Package mqtt wraps paho.mqtt.golang for the screenlogic core.
//
// It provides connection management with auto-reconnect, publish and
// subscribe helpers with panic recovery, Last Will and Testament for
// offline detection, and topic builders for the screenlogic topic
// hierarchy:
//
//	screenlogic/system/status    retained online/offline status
//	screenlogic/result/<name>    retained last result per display
//	screenlogic/command/power    inbound power commands
//
// MQTT is optional: when disabled in config the core runs standalone
// and nothing in this package is constructed.
package mqtt
