// Package terminal plays the story in a line-oriented console.
//
// Players answer with 1/2 (or a/b), slash commands mirror the bot commands, and raw
// "choose|<index>|<a|b>" payloads go through the same validation as button presses.
package terminal
