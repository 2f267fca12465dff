/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package protocol implements the line-oriented wire format shared by both
// peers: one "COMMAND:payload" record per line.
package protocol

import (
	"errors"

	"github.com/Seednode/sketchduel/stroke"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrRecordTooLarge  = errors.New("record too large")
)

// Kind is the closed set of commands understood by a peer.
type Kind uint8

const (
	KindWord Kind = iota + 1
	KindRole
	KindDraw
	KindClear
	KindChat
	KindWin
	KindImage
	KindRequestImage
	KindParams
)

var kindNames = map[Kind]string{
	KindWord:         "WORD",
	KindRole:         "ROLE",
	KindDraw:         "DRAW",
	KindClear:        "CLEAR",
	KindChat:         "CHAT",
	KindWin:          "WIN",
	KindImage:        "IMAGE",
	KindRequestImage: "REQUEST_IMAGE",
	KindParams:       "PARAMS",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseKind maps a wire command name to its Kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// DrawerOnly reports whether only the peer holding drawing authority may
// send commands of this kind.
func (k Kind) DrawerOnly() bool {
	switch k {
	case KindWord, KindDraw, KindClear, KindImage, KindParams:
		return true
	}
	return false
}

// Role payloads carried by ROLE records.
const (
	RoleDrawer  = "DRAWER"
	RoleGuesser = "GUESSER"
)

type Command struct {
	Kind    Kind
	Payload string
}

func (c Command) String() string {
	return c.Kind.String() + ":" + c.Payload
}

func Word(word string) Command {
	return Command{Kind: KindWord, Payload: word}
}

func Role(role string) Command {
	return Command{Kind: KindRole, Payload: role}
}

func Draw(s stroke.Stroke) Command {
	return Command{Kind: KindDraw, Payload: s.Encode()}
}

func Clear() Command {
	return Command{Kind: KindClear}
}

func Chat(text string) Command {
	return Command{Kind: KindChat, Payload: text}
}

func Win(word string) Command {
	return Command{Kind: KindWin, Payload: word}
}

func Image(snapshot string) Command {
	return Command{Kind: KindImage, Payload: snapshot}
}

func RequestImage() Command {
	return Command{Kind: KindRequestImage}
}

func Params(p stroke.Pen) Command {
	return Command{Kind: KindParams, Payload: p.Encode()}
}
