package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/NotCoffee418/uniden_interface/pkg/channeldb"
	"github.com/NotCoffee418/uniden_interface/pkg/config"
	"github.com/NotCoffee418/uniden_interface/pkg/pathing"
	"github.com/NotCoffee418/uniden_interface/pkg/remote"
	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

func newInfoCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the scanner model and firmware version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScanner(flags, func(sc *uniden.Scanner) error {
				id := sc.Identity()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "model:   %s\n", id.Model)
				fmt.Fprintf(out, "version: %s\n", id.Version)
				fmt.Fprintf(out, "mode:    %s\n", sc.Mode())
				return nil
			})
		},
	}
}

func newLevelCmd(
	flags *rootFlags,
	name, short string,
	get func(*uniden.Scanner) (int, error),
	set func(*uniden.Scanner, int) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [value]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value *int
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid %s %q", name, args[0])
				}
				value = &v
			}
			return withScanner(flags, func(sc *uniden.Scanner) error {
				if value != nil {
					if err := set(sc, *value); err != nil {
						return err
					}
				}
				v, err := get(sc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", name, v)
				return nil
			})
		},
	}
}

func newChannelCmd(flags *rootFlags) *cobra.Command {
	var archive bool
	cmd := &cobra.Command{
		Use:   "channel <id>",
		Short: "Read one channel's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChannelID(args[0])
			if err != nil {
				return err
			}
			return withScanner(flags, func(sc *uniden.Scanner) error {
				fields, err := sc.Channel(id)
				if err != nil {
					return err
				}
				printFields(cmd.OutOrStdout(), uniden.ChannelSettings, fields)

				if !archive && !config.ActiveScannerConfig.ArchiveEnabled {
					return nil
				}
				return archiveChannels(cmd.OutOrStdout(), map[int][]string{id: fields})
			})
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "Store the read in the channel archive")
	return cmd
}

// newDumpCmd reads a range of channels inside a single program mode scope and archives them.
func newDumpCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <from> <to>",
		Short: "Read a range of channels and store them in the channel archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseChannelID(args[0])
			if err != nil {
				return err
			}
			to, err := parseChannelID(args[1])
			if err != nil {
				return err
			}
			if to < from {
				return fmt.Errorf("channel range %d-%d is empty", from, to)
			}

			read := make(map[int][]string)
			err = withScanner(flags, func(sc *uniden.Scanner) error {
				return sc.WithProgramMode(func(x uniden.Executor) error {
					for id := from; id <= to; id++ {
						res, err := x.Execute(uniden.ChannelSettings, strconv.Itoa(id))
						if errors.Is(err, uniden.ErrProtocol) {
							log.Warn().Int("channel", id).Err(err).Msg("Channel not readable, skipping")
							continue
						}
						if err != nil {
							return err
						}
						read[id] = res.Payload
						printFields(cmd.OutOrStdout(), uniden.ChannelSettings, res.Payload)
					}
					return nil
				})
			})
			if err != nil {
				return err
			}
			return archiveChannels(cmd.OutOrStdout(), read)
		},
	}
}

func newScreenCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "screen",
		Short: "Show the raw status line fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScanner(flags, func(sc *uniden.Scanner) error {
				fields, err := sc.Screen()
				if err != nil {
					return err
				}
				printFields(cmd.OutOrStdout(), uniden.Screen, fields)
				return nil
			})
		},
	}
}

func newKeyCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "key <key> [P|L|H|R]",
		Short: "Simulate a front panel key press",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !uniden.ValidParam(args[0]) {
				return fmt.Errorf("invalid key %q", args[0])
			}
			var mode uniden.KeyMode
			if len(args) == 2 {
				mode = uniden.KeyMode(strings.ToUpper(args[1]))
				switch mode {
				case uniden.KeyPress, uniden.KeyLong, uniden.KeyHold, uniden.KeyRelease:
				default:
					return fmt.Errorf("invalid key mode %q", args[1])
				}
			}
			return withScanner(flags, func(sc *uniden.Scanner) error {
				return sc.PressKey(args[0], mode)
			})
		},
	}
}

func newChargeTimeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "charge-time <hours>",
		Short: "Set the battery charge time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid hours %q", args[0])
			}
			return withScanner(flags, func(sc *uniden.Scanner) error {
				return sc.SetChargeTime(hours)
			})
		},
	}
}

func newClearMemoryCmd(flags *rootFlags) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "clear-memory",
		Short: "Erase all scanner memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("clear-memory erases every channel on the scanner, pass --yes to continue")
			}
			return withScanner(flags, func(sc *uniden.Scanner) error {
				if err := sc.ClearMemory(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "memory cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm erasing the scanner memory")
	return cmd
}

func newExecCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <MNEMONIC> [params...]",
		Short: "Send a raw command and print the reply fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := uniden.ParseCommandLine(strings.Join(args, ","))
			if err != nil {
				return err
			}
			return withScanner(flags, func(sc *uniden.Scanner) error {
				res, err := sc.Execute(command.Mnemonic, command.Params...)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), command.Mnemonic, res.OK, res.Payload)
				return nil
			})
		},
	}
}

func newRemoteCmd() *cobra.Command {
	var retries int
	cmd := &cobra.Command{
		Use:   "remote <host:port> <command line>",
		Short: "Run a command line on a scanner_api console",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			dialer := remote.DefaultDialer()
			dialer.MaxRetries = retries
			client, err := dialer.Dial(ctx, args[0])
			if err != nil {
				return err
			}
			defer client.Close()

			reply, err := client.Execute(strings.Join(args[1:], ","))
			if err != nil {
				return err
			}
			if err := reply.Err(); err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), uniden.Mnemonic(reply.Command), reply.OK, reply.Payload)
			return nil
		},
	}
	cmd.Flags().IntVar(&retries, "retries", 3, "Connection attempts before giving up")
	return cmd
}

func newPruneCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old channel snapshots from the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := channeldb.Open(pathing.GetChannelDbPath())
			if err != nil {
				return err
			}
			defer archive.Close()

			removed, err := archive.Prune(time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d snapshot(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "Age after which snapshots are removed")
	return cmd
}

func parseChannelID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid channel %q", raw)
	}
	return id, nil
}

func archiveChannels(out io.Writer, channels map[int][]string) error {
	archive, err := channeldb.Open(pathing.GetChannelDbPath())
	if err != nil {
		return err
	}
	defer archive.Close()

	stored := 0
	now := time.Now()
	for id, fields := range channels {
		written, err := archive.SaveSnapshot(id, fields, now)
		if err != nil {
			return fmt.Errorf("archive channel %d: %w", id, err)
		}
		if written {
			stored++
		}
	}
	fmt.Fprintf(out, "archived %d of %d channel(s)\n", stored, len(channels))
	return nil
}

func printFields(out io.Writer, m uniden.Mnemonic, fields []string) {
	fmt.Fprintf(out, "%s %s\n", m, strings.Join(fields, ","))
}

func printResult(out io.Writer, m uniden.Mnemonic, ok bool, payload []string) {
	if ok && len(payload) == 0 {
		fmt.Fprintf(out, "%s OK\n", m)
		return
	}
	printFields(out, m, payload)
}
