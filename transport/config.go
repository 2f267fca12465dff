/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transport

import "time"

// DefaultPort is used when an address carries no port.
const DefaultPort = 12345

type Config struct {
	// Address to bind when listening.
	Address string

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	ReadBufferSize int
	SendQueueSize  int
	EventQueueSize int
}

func DefaultConfig() *Config {
	return &Config{
		Address:        ":12345",
		ConnectTimeout: 5 * time.Second,
		WriteTimeout:   5 * time.Second,
		ReadBufferSize: 32 * 1024,
		SendQueueSize:  1024,
		EventQueueSize: 256,
	}
}
