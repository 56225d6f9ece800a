// Package ui implements the interactive terminal dashboard for a
// running receiver session. The monitor polls session statistics on a
// timer, toggles streaming, and retunes the receiver from key
// bindings. Styles are shared lipgloss definitions sized to the
// terminal.
package ui
