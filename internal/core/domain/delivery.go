package domain

import (
	"net"
	"strconv"
)

// Endpoint is the host and port a receiver is bound to.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// String returns the endpoint in host:port form.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Delivery is one inbound payload handed to a receiver's handler.
type Delivery struct {
	// ID correlates the delivery in logs. It is not part of the wire contract.
	ID string `json:"id"`
	// Address is https://<listen host>:<listen port><request target>.
	Address string `json:"address"`
	// Content is the full request body decoded as text.
	Content string `json:"content"`
	// PeerID is the SPIFFE ID of a verified client certificate, if any.
	PeerID string `json:"peer_id,omitempty"`
}
