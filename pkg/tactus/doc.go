// ABOUTME: High-level tactus library API
// ABOUTME: Provides simple Player and Server entry points over the paced engine

// Package tactus provides high-level APIs for rate-synchronized audio
// streaming.
//
// This is the main entry point for most library users, providing:
//   - Player: paced local playback of files, URLs, tones, or custom sources
//   - Server: stream a paced source to WebSocket subscribers
//   - Source: interface for custom audio sources
//
// For lower-level control, see the audio and ratesync packages.
//
// Example Player:
//
//	player, err := tactus.NewPlayer(tactus.PlayerConfig{
//	    Source: "/path/to/audio.flac",
//	    Output: "speaker",
//	    Volume: 80,
//	})
//	err = player.Play()
//
// Example Server:
//
//	source, err := tactus.FileSource("/path/to/audio.flac")
//	server, err := tactus.NewServer(tactus.ServerConfig{
//	    Port:   9730,
//	    Source: source,
//	})
//	err = server.Start()
package tactus
