// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/stockctl/internal/meta"
)

const bashCompletionScript = `# bash completion for stockctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_stockctl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "etl hq iq cache completion --cache-dir --no-cache --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--columns -a --color -c --filter -f --output -o --sort -s --titles -t --tldr"

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
            return 0
            ;;
        --period|-p)
            COMPREPLY=( $(compgen -W "1d 5d 1mo 3mo 6mo 1y 2y 3y 5y 10y ytd max" -- "$cur") )
            return 0
            ;;
        --interval|-i)
            COMPREPLY=( $(compgen -W "1m 2m 5m 15m 30m 60m 90m 1h 1d 5d 1wk 1mo 3mo" -- "$cur") )
            return 0
            ;;
    esac

    case "$cmd" in
        etl)
            local opts="--tldr"
            ;;
        hq)
            local opts="$common --period -p --interval -i --tail"
            ;;
        iq)
            local opts="$common"
            ;;
        cache)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "status clear prune diff push pull" -- "$cur") )
                return 0
            fi
            case "${COMP_WORDS[2]}" in
                status) local opts="$common" ;;
                prune) local opts="--days -d" ;;
                diff) local opts="--color -c" ;;
                push|pull) local opts="--bucket --prefix --region --profile --endpoint" ;;
                *) local opts="" ;;
            esac
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _stockctl stockctl
`

const zshCompletionScript = `#compdef stockctl

_stockctl() {
  local -a cmds
  cmds=(
    'etl:run the stock data pipeline'
    'hq:history query'
    'iq:company info query'
    'cache:inspect and maintain the daily cache'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --columns)'{-a,--columns}'[columns to include]:columns'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort columns]:columns'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'stockctl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    etl)
      _arguments -C '--tldr[show tldr page]' '::ticker:'
      ;;
    hq)
      _arguments -C \
        $common \
        '(-p --period)'{-p,--period}'[history period]:period:(1d 5d 1mo 3mo 6mo 1y 2y 3y 5y 10y ytd max)' \
        '(-i --interval)'{-i,--interval}'[bar interval]:interval:(1m 2m 5m 15m 30m 60m 90m 1h 1d 5d 1wk 1mo 3mo)' \
        '--tail[last N rows]:rows' \
        '*:ticker:'
      ;;
    iq)
      _arguments -C $common ':ticker:'
      ;;
    cache)
      _arguments '1: :((status clear prune diff push pull))' '*::arg:->rest'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _stockctl stockctl
`

func CompletionCommandAction(_ context.Context, cmd *cli.Command) error {
	out := GetMeta(cmd).Out()

	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(out, bashCompletionScript)
	case "zsh":
		fmt.Fprint(out, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(out, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(out, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: stockctl completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "stockctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
