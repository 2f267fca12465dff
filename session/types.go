/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import "github.com/Seednode/sketchduel/protocol"

// Redacted is what a guesser sees in place of the secret word.
const Redacted = "*****"

type Role uint8

const (
	Drawer Role = iota + 1
	Guesser
)

func (r Role) String() string {
	switch r {
	case Drawer:
		return "drawer"
	case Guesser:
		return "guesser"
	}
	return "unknown"
}

// Wire returns the ROLE payload naming r.
func (r Role) Wire() string {
	if r == Drawer {
		return protocol.RoleDrawer
	}
	return protocol.RoleGuesser
}

func (r Role) Other() Role {
	if r == Drawer {
		return Guesser
	}
	return Drawer
}

func parseRole(payload string) (Role, bool) {
	switch payload {
	case protocol.RoleDrawer:
		return Drawer, true
	case protocol.RoleGuesser:
		return Guesser, true
	}
	return 0, false
}

type State uint8

const (
	WaitingForPeer State = iota
	RoundActive
	RoundEnded
)

func (s State) String() string {
	switch s {
	case WaitingForPeer:
		return "waiting for peer"
	case RoundActive:
		return "round active"
	case RoundEnded:
		return "round ended"
	}
	return "unknown"
}

// EndReason explains why a round finished.
type EndReason uint8

const (
	// ReasonGuessed: the local guesser found the word.
	ReasonGuessed EndReason = iota + 1
	// ReasonPeerGuessed: the remote guesser found the local drawer's word.
	ReasonPeerGuessed
	ReasonTimeout
	ReasonDisconnect
)

func (r EndReason) String() string {
	switch r {
	case ReasonGuessed:
		return "guessed"
	case ReasonPeerGuessed:
		return "peer guessed"
	case ReasonTimeout:
		return "timeout"
	case ReasonDisconnect:
		return "disconnect"
	}
	return "unknown"
}

type Speaker uint8

const (
	SpeakerSelf Speaker = iota + 1
	SpeakerPeer
	SpeakerSystem
)

func (s Speaker) String() string {
	switch s {
	case SpeakerSelf:
		return "You"
	case SpeakerPeer:
		return "Peer"
	}
	return "System"
}

type Score struct {
	Self, Peer int
}
