/*
Package telegram runs the story as a Telegram bot using long polling.

Commands (/start, /reset, /progress, /help, /step) and inline keyboard presses are turned
into dispatcher events; the returned renders become messages, message edits and
callback answers. The session key is the Telegram user id, so a user keeps one journey
across chats.
*/
package telegram
