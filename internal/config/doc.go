// Package config loads and validates the netsdr client configuration.
//
// Configuration is a YAML file naming the receiver's address and ports,
// the tuning parameters applied during connect, the capture output, and
// the optional monitoring HTTP server. Every section validates itself;
// Load refuses a file that fails validation.
//
// The tuning section also builds the raw command bodies for the setup
// sequence (sample rate, RF filter, A/D modes). Those byte layouts are
// receiver configuration, deliberately kept out of the session logic.
package config
