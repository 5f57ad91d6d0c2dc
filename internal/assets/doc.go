// Package assets resolves and downloads episode audio: the audio-link stage
// extracts a playable URL from each episode page, the download stage streams
// it to the asset directory under a filename derived from the episode URL.
package assets
