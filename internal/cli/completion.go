package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
	"github.com/promptworkbench/wbtest/internal/suite"
)

var completionShells = []string{"bash", "zsh", "fish"}

func (a *app) completionCommand() *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "Generate a shell completion script",
		ArgsUsage: strings.Join(completionShells, "|"),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "alias", Usage: "Generate completion for a command alias"},
		},
		OnUsageError: usageError,
		Action: func(c *cli.Context) error {
			cmdName := "wbtest"
			if alias := c.String("alias"); alias != "" {
				cmdName = alias
			}
			commands := describeCommands(c.App)

			switch shell := c.Args().First(); shell {
			case "bash":
				a.out.Print("%s", generateBashCompletion(cmdName, commands))
			case "zsh":
				a.out.Print("%s", generateZshCompletion(cmdName, commands))
			case "fish":
				a.out.Print("%s", generateFishCompletion(cmdName, commands))
			case "":
				return wberrors.Configf("completion: shell required (%s)", strings.Join(completionShells, ", "))
			default:
				return wberrors.Configf("completion: unsupported shell %q (use bash, zsh, or fish)", shell)
			}
			return nil
		},
	}
}

// commandInfo is the completion view of one subcommand.
type commandInfo struct {
	Name  string
	Usage string
	Flags []string // long flag names without dashes
}

func describeCommands(app *cli.App) []commandInfo {
	infos := make([]commandInfo, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		if cmd.Hidden {
			continue
		}
		info := commandInfo{Name: cmd.Name, Usage: cmd.Usage}
		for _, f := range cmd.Flags {
			info.Flags = append(info.Flags, f.Names()[0])
		}
		sort.Strings(info.Flags)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// argWords returns the positional completions of a subcommand.
func argWords(command string) []string {
	switch command {
	case "probe":
		return suite.ProbeNames
	case "completion":
		return completionShells
	}
	return nil
}

func dashed(flags []string) string {
	words := make([]string, len(flags))
	for i, f := range flags {
		words[i] = "--" + f
	}
	return strings.Join(words, " ")
}

func generateBashCompletion(cmdName string, commands []commandInfo) string {
	funcName := "_" + strings.ReplaceAll(cmdName, "-", "_") + "_completions"

	names := make([]string, len(commands))
	var cases strings.Builder
	for i, cmd := range commands {
		names[i] = cmd.Name
		words := strings.TrimSpace(strings.Join(argWords(cmd.Name), " ") + " " + dashed(cmd.Flags))
		if words == "" {
			continue
		}
		fmt.Fprintf(&cases, "        %s)\n            COMPREPLY=($(compgen -W \"%s\" -- \"${cur}\"))\n            return\n            ;;\n", cmd.Name, words)
	}

	return fmt.Sprintf(`# %[1]s bash completion
# Add to ~/.bashrc: eval "$(%[1]s completion bash)"

%[2]s() {
    local cur="${COMP_WORDS[COMP_CWORD]}"
    local cmd="${COMP_WORDS[1]}"

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=($(compgen -W "%[3]s --help --version" -- "${cur}"))
        return
    fi

    case "${cmd}" in
%[4]s    esac
}

complete -o default -F %[2]s %[1]s
`, cmdName, funcName, strings.Join(names, " "), cases.String())
}

func generateZshCompletion(cmdName string, commands []commandInfo) string {
	funcName := "_" + strings.ReplaceAll(cmdName, "-", "_")

	var described, cases strings.Builder
	for _, cmd := range commands {
		fmt.Fprintf(&described, "        '%s:%s'\n", cmd.Name, zshEscape(cmd.Usage))
		words := strings.TrimSpace(strings.Join(argWords(cmd.Name), " ") + " " + dashed(cmd.Flags))
		if words == "" {
			continue
		}
		fmt.Fprintf(&cases, "        %s)\n            compadd -- %s\n            ;;\n", cmd.Name, words)
	}

	return fmt.Sprintf(`#compdef %[1]s
# %[1]s zsh completion
# Add to ~/.zshrc: eval "$(%[1]s completion zsh)"

%[2]s() {
    local -a commands
    commands=(
%[3]s    )

    if (( CURRENT == 2 )); then
        _describe -t commands 'command' commands
        return
    fi

    case "${words[2]}" in
%[4]s        *)
            _files
            ;;
    esac
}

compdef %[2]s %[1]s
`, cmdName, funcName, described.String(), cases.String())
}

func generateFishCompletion(cmdName string, commands []commandInfo) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %[1]s fish completion\n# Add to config: %[1]s completion fish | source\n\n", cmdName)
	fmt.Fprintf(&sb, "complete -c %s -f\n\n", cmdName)

	for _, cmd := range commands {
		fmt.Fprintf(&sb, "complete -c %s -n '__fish_use_subcommand' -a '%s' -d '%s'\n", cmdName, cmd.Name, fishEscape(cmd.Usage))
	}

	for _, cmd := range commands {
		if words := argWords(cmd.Name); len(words) > 0 {
			fmt.Fprintf(&sb, "complete -c %s -n '__fish_seen_subcommand_from %s' -a '%s'\n", cmdName, cmd.Name, strings.Join(words, " "))
		}
		for _, f := range cmd.Flags {
			fmt.Fprintf(&sb, "complete -c %s -n '__fish_seen_subcommand_from %s' -l %s\n", cmdName, cmd.Name, f)
		}
	}
	return sb.String()
}

func zshEscape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "'", `'\''`), ":", `\:`)
}

func fishEscape(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
