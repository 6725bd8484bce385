package bot

import (
	"strings"
)

type CommandKind int

const (
	CommandSearch CommandKind = iota
	CommandStart
	CommandSources
	CommandBalance
	CommandHelp
	CommandProfile
	CommandReferral
	CommandInvite
)

var commandNames = map[string]CommandKind{
	"/start":    CommandStart,
	"/search":   CommandSearch,
	"/sources":  CommandSources,
	"/balance":  CommandBalance,
	"/help":     CommandHelp,
	"/profile":  CommandProfile,
	"/referral": CommandReferral,
	"/invite":   CommandInvite,
}

func (k CommandKind) String() string {
	switch k {
	case CommandSearch:
		return "search"
	case CommandStart:
		return "start"
	case CommandSources:
		return "sources"
	case CommandBalance:
		return "balance"
	case CommandHelp:
		return "help"
	case CommandProfile:
		return "profile"
	case CommandReferral:
		return "referral"
	case CommandInvite:
		return "invite"
	}
	return "unknown"
}

// Command is the parsed form of one chat message.
type Command struct {
	Kind CommandKind
	// Arg is the search query for CommandSearch and the referral code for
	// CommandStart and CommandInvite.
	Arg string
}

// ParseCommand recognises commands by their first whitespace-delimited token,
// case-sensitively, with an optional @botname suffix. Anything else, including
// unknown slash commands, is a search for the whole text.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{Kind: CommandSearch}
	}

	head := fields[0]
	name := head
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}

	kind, ok := commandNames[name]
	if !ok {
		return Command{Kind: CommandSearch, Arg: text}
	}

	cmd := Command{Kind: kind}
	switch kind {
	case CommandSearch:
		cmd.Arg = strings.TrimSpace(strings.TrimPrefix(text, head))
	case CommandStart, CommandInvite:
		if len(fields) > 1 {
			cmd.Arg = fields[1]
		}
	}
	return cmd
}
