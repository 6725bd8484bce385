package bot

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want Command
	}{
		{"/start", Command{Kind: CommandStart}},
		{"/start ABCD1234", Command{Kind: CommandStart, Arg: "ABCD1234"}},
		{"/start@lookup_bot ABCD1234 extra", Command{Kind: CommandStart, Arg: "ABCD1234"}},
		{"/search +7 929 847-04-21", Command{Kind: CommandSearch, Arg: "+7 929 847-04-21"}},
		{"/search", Command{Kind: CommandSearch}},
		{"/search   ", Command{Kind: CommandSearch}},
		{"/sources", Command{Kind: CommandSources}},
		{"/balance now", Command{Kind: CommandBalance}},
		{"/help", Command{Kind: CommandHelp}},
		{"/profile", Command{Kind: CommandProfile}},
		{"/referral", Command{Kind: CommandReferral}},
		{"/invite XYZ", Command{Kind: CommandInvite, Arg: "XYZ"}},
		{"/invite", Command{Kind: CommandInvite}},
		{"Иван Петров", Command{Kind: CommandSearch, Arg: "Иван Петров"}},
		{"  example@mail.ru ", Command{Kind: CommandSearch, Arg: "example@mail.ru"}},
		{"/unknown thing", Command{Kind: CommandSearch, Arg: "/unknown thing"}},
		{"/START", Command{Kind: CommandSearch, Arg: "/START"}},
		{"/searchfoo bar", Command{Kind: CommandSearch, Arg: "/searchfoo bar"}},
		{"/helpme", Command{Kind: CommandSearch, Arg: "/helpme"}},
		{"/startABCD1234", Command{Kind: CommandSearch, Arg: "/startABCD1234"}},
		{"", Command{Kind: CommandSearch}},
	}

	for _, tt := range tests {
		if got := ParseCommand(tt.text); got != tt.want {
			t.Fatalf("ParseCommand(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}
