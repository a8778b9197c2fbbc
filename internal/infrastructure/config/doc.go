// Package config loads and validates Screen Logic Core configuration.
//
// Configuration is read from a single YAML file, with hardcoded defaults
// applied first and SCREENLOGIC_* environment variables applied last.
// The display fleet itself lives in configuration: each entry names a
// display, its network address, the protocol that drives it (adb or
// webos), and, for webos displays, the MAC address used for Wake-on-LAN.
//
// Example config.yaml:
//
//	site:
//	  id: "home"
//	displays:
//	  - name: "Lobby"
//	    address: "10.0.0.5"
//	  - name: "Patio"
//	    address: "10.0.0.9"
//	    protocol: "webos"
//	    mac: "AA:BB:CC:DD:EE:FF"
//	    group: "outside"
//	adb:
//	  binary: "adb"
//	  port: 5555
//	dispatch:
//	  max_concurrency: 6
package config
