package version

// Version is the jsdef release version reported by the CLI and the
// index/stats daemon method.
const Version = "0.1.0"
