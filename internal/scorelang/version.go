package scorelang

// Version is the compiler core version, surfaced by the CLI.
const Version = "0.4.0"
