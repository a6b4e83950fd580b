package version

// Version is overridden at build time with -ldflags "-X github.com/Daskott/favdial/version.Version=..."
var Version = "0.3.0"
