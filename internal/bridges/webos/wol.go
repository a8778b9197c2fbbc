package webos

import (
	"errors"
	"net"
	"strconv"
)

// magicPacket builds a Wake-on-LAN frame for a 48-bit MAC: six 0xFF
// bytes followed by the MAC repeated sixteen times.
func magicPacket(mac string) ([]byte, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return nil, err
	}
	if len(hw) != 6 {
		return nil, errors.New("webos: wake-on-lan requires a 48-bit MAC")
	}

	packet := make([]byte, 0, 102)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hw...)
	}
	return packet, nil
}

// WakeOnLAN broadcasts a magic packet for the given MAC. It reports
// false only on local failure, building the packet or sending the
// datagram; the display never acknowledges a wake packet.
func (b *Bridge) WakeOnLAN(mac string) bool {
	packet, err := magicPacket(mac)
	if err != nil {
		b.logf("wake packet build failed", "mac", mac, "detail", err.Error())
		return false
	}

	addr := net.JoinHostPort(b.cfg.BroadcastAddress, strconv.Itoa(b.cfg.WOLPort))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		b.logf("wake packet dial failed", "addr", addr, "detail", err.Error())
		return false
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		b.logf("wake packet send failed", "addr", addr, "detail", err.Error())
		return false
	}
	return true
}
