// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/filememo/internal/meta"
)

const bashCompletionScript = `# bash completion for filememo
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_filememo()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "hash ls get migrate diff purge backup restore completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local store="--backend -b --cache-file --cache-db --flush-delay"
    local common="$store --color -c --filter -f --output -o --sort -s --titles -t"
    local s3="$store --bucket --key --endpoint --profile --region"

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json yaml" -- "$cur") )
            return 0
            ;;
        --backend|-b|--to)
            COMPREPLY=( $(compgen -W "snapshot table" -- "$cur") )
            return 0
            ;;
        --algo|-a)
            COMPREPLY=( $(compgen -W "sha256 blake2b" -- "$cur") )
            return 0
            ;;
        --cache-file|--cache-db)
            COMPREPLY=( $(compgen -f -- "$cur") )
            return 0
            ;;
    esac

    case "$cmd" in
        hash)
            if [[ "$cur" != -* ]]; then
                COMPREPLY=( $(compgen -f -- "$cur") )
                return 0
            fi
            local opts="$common --algo -a --full"
            ;;
        ls)
            local opts="$common"
            ;;
        get)
            local opts="$store --query -q"
            ;;
        migrate)
            local opts="$store --to"
            ;;
        diff)
            local opts="$store --color -c"
            ;;
        purge)
            local opts="$store --hours"
            ;;
        backup|restore)
            local opts="$s3"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$store"
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _filememo filememo
`

const zshCompletionScript = `#compdef filememo

_filememo() {
  local -a cmds
  cmds=(
    'hash:digest files, reusing cached results'
    'ls:list subsections or the entries of one'
    'get:print a stored value'
    'migrate:copy all entries to the other backend'
    'diff:compare the snapshot file with the table store'
    'purge:remove old quarantined cache files'
    'backup:upload the cache to S3'
    'restore:merge a cache backup from S3 into the active backend'
    'completion:generate shell completion script'
  )

  local -a store
  store=(
  '(-b --backend)'{-b,--backend}'[cache backend]:backend:(snapshot table)'
  '--cache-file[snapshot file path]:file:_files'
  '--cache-db[sqlite database path]:file:_files'
  '--flush-delay[snapshot write delay]:duration'
  )

  local -a common
  common=(
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  local -a s3
  s3=(
  '--bucket[S3 bucket]:bucket'
  '--key[object key]:key'
  '--endpoint[S3-compatible endpoint]:url'
  '--profile[AWS profile]:profile'
  '--region[AWS region]:region'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'filememo commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    hash)
      _arguments -C $store $common \
        '(-a --algo)'{-a,--algo}'[digest algorithm]:algo:(sha256 blake2b)' \
        '--full[show the full digest]' \
        '*:file:_files'
      ;;
    ls)
      _arguments -C $store $common '::subsection'
      ;;
    get)
      _arguments -C $store \
        '(-q --query)'{-q,--query}'[gjson path]:path' \
        ':subsection' ':title'
      ;;
    migrate)
      _arguments -C $store '--to[target backend]:backend:(snapshot table)'
      ;;
    diff)
      _arguments -C $store '(-c --color)'{-c,--color}'[enable colored diff]'
      ;;
    purge)
      _arguments -C $store '--hours[age in hours]:hours'
      ;;
    backup|restore)
      _arguments -C $store $s3
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $store
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _filememo filememo
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	w := writer(cmd)
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: filememo completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "filememo completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
