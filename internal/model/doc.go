// Package model defines the core data structures used throughout
// the lrc-downloader application.
//
// # Track
//
// Track is the identifying information read from a media file's tags:
//
//	track := &model.Track{Path: "/music/Daft Punk/01 One More Time.mp3", Artist: "Daft Punk", Title: "One More Time"}
//	fmt.Println(track.Query()) // "Daft Punk One More Time"
//
// # Sidecar State
//
// SidecarState describes the lyrics file sitting next to a media file:
// absent, present and valid, or present and corrupt.
//
// # Outcomes
//
// Every file handled by the download manager ends with exactly one Outcome,
// collected in a Result. A Summary counts results per outcome:
//
//	var sum model.Summary
//	sum.Add(result)
//	fmt.Println(sum.Count(model.OutcomeDownloaded))
package model
