package stream

// Version is reported by the command line tools.
const Version = "0.1.0"
