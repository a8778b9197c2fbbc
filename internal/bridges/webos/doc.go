// Package webos drives LG webOS displays over the SSAP websocket
// protocol.
//
// webOS requires pairing: the first register handshake makes the TV show
// an on-screen prompt, and only after the user accepts does the TV issue
// a client key. The bridge persists that key through a TokenStore the
// moment it arrives, so an accepted prompt survives restarts even if the
// rest of the operation fails. Until the prompt is accepted, connects
// report a pending status with the exact prompt message.
//
// A sleeping webOS display cannot hold a websocket session, so power-on
// is a Wake-on-LAN broadcast rather than a protocol command; power-off
// is the ssap://system/turnOff request over a live session.
package webos
