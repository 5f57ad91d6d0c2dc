// Package transcribe turns downloaded audio into speaker-labeled transcript
// files via an AssemblyAI-style REST provider: upload the raw bytes, submit a
// transcription job, poll until it completes, then render the utterances to a
// plain-text transcript next to the audio file.
package transcribe
