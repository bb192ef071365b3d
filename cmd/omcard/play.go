package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rayzi0417/om-card/internal/domain"
	"github.com/Rayzi0417/om-card/internal/facilitator"
	"github.com/Rayzi0417/om-card/internal/play"
)

func playCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a reflection round",
	}
	cmd.AddCommand(singleCmd(opts), flipCmd(opts), heroCmd(opts))
	return cmd
}

// console reads commands line by line and echoes streamed replies.
type console struct {
	in  *bufio.Scanner
	out io.Writer
}

func newConsole(cmd *cobra.Command) *console {
	return &console{in: bufio.NewScanner(cmd.InOrStdin()), out: cmd.OutOrStdout()}
}

// read prompts and returns the next trimmed line. ok is false at EOF.
func (c *console) read(prompt string) (line string, ok bool) {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		fmt.Fprintln(c.out)
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *console) println(a ...any) { fmt.Fprintln(c.out, a...) }

// reply streams one facilitator turn. The text is printed once at the end
// when nothing was streamed, which is the case for fallback texts.
func (c *console) reply(run func(onChunk func(string)) (string, error)) error {
	fmt.Fprint(c.out, "\n> ")
	streamed := false
	text, err := run(func(chunk string) {
		streamed = true
		fmt.Fprint(c.out, chunk)
	})
	if err != nil {
		c.println()
		return err
	}
	if !streamed {
		fmt.Fprint(c.out, text)
	}
	fmt.Fprint(c.out, "\n\n")
	return nil
}

func describe(card domain.DrawnCard) string {
	var parts []string
	if card.Word.CN != "" || card.Word.EN != "" {
		parts = append(parts, fmt.Sprintf("%s (%s)", card.Word.CN, card.Word.EN))
	}
	if len(card.PromptKeywords) > 0 {
		parts = append(parts, strings.Join(card.PromptKeywords, ", "))
	}
	if card.ImageURL != "" && !strings.HasPrefix(card.ImageURL, "data:") {
		parts = append(parts, card.ImageURL)
	}
	if len(parts) == 0 {
		return card.CardID
	}
	return strings.Join(parts, " | ")
}

func singleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "single",
		Short: "Draw one card and talk about it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.playConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			con := newConsole(cmd)
			sess := play.NewSingleSession(opts.backend(), cfg)

			draw := func() error {
				con.println("drawing...")
				if err := sess.Draw(ctx); err != nil {
					con.println(sess.State().Err)
					return err
				}
				con.println("card:", describe(*sess.State().Card))
				con.println("what do you see? (/draw for a new card, /quit to leave)")
				return nil
			}
			if err := draw(); err != nil {
				return err
			}

			for {
				line, ok := con.read("you: ")
				switch {
				case !ok || line == "/quit":
					return nil
				case line == "":
					continue
				case line == "/draw":
					if err := draw(); err != nil {
						return err
					}
					continue
				}
				if err := con.reply(func(on func(string)) (string, error) { return sess.Send(ctx, line, on) }); err != nil {
					return err
				}
			}
		},
	}
}

func flipCmd(opts *options) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "flip",
		Short: "Explore a comfort and a discomfort card, then swap them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.playConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			comp, err := composer(ctx)
			if err != nil {
				return err
			}
			con := newConsole(cmd)
			sess := play.NewFlipSession(opts.backend(), comp, cfg)

			con.println("dealing cards...")
			if err := sess.Start(ctx, play.Source(source)); err != nil {
				if errors.Is(err, play.ErrNoCards) {
					con.println(sess.State().Notice)
				}
				return err
			}
			if err := setupFlip(con, sess.State()); err != nil {
				return err
			}
			if err := con.reply(func(on func(string)) (string, error) { return sess.Begin(ctx, on) }); err != nil {
				return err
			}
			return flipLoop(ctx, con, sess)
		},
	}
	cmd.Flags().StringVar(&source, "source", string(play.SourceClassic), "candidate source (classic, ai, legacy)")
	return cmd
}

// setupFlip lets the player pick two candidates and place them.
func setupFlip(con *console, st *play.Flip) error {
	if st.Stage == play.FlipSelecting {
		for i, c := range st.Candidates {
			con.println(fmt.Sprintf("  %d. %s", i+1, describe(c)))
		}
		for st.Stage == play.FlipSelecting {
			line, ok := con.read("pick two cards (e.g. 1 3): ")
			if !ok {
				return io.EOF
			}
			picks, err := parsePicks(line, len(st.Candidates))
			if err != nil || len(picks) != 2 {
				con.println("enter two different card numbers")
				continue
			}
			for _, p := range picks {
				if err := st.Toggle(st.Candidates[p].CardID); err != nil {
					return err
				}
			}
			if err := st.ConfirmSelection(); err != nil {
				return err
			}
		}
	}

	var selected []domain.DrawnCard
	for _, id := range st.Selected {
		for _, c := range st.Candidates {
			if c.CardID == id {
				selected = append(selected, c)
			}
		}
	}
	con.println("  1.", describe(selected[0]))
	con.println("  2.", describe(selected[1]))
	for {
		line, ok := con.read("which card feels uncomfortable? (1 or 2): ")
		if !ok {
			return io.EOF
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > 2 {
			continue
		}
		if err := st.Assign(selected[n-1].CardID, play.ZoneDiscomfort); err != nil {
			return err
		}
		if err := st.Assign(selected[2-n].CardID, play.ZoneComfort); err != nil {
			return err
		}
		return nil
	}
}

func parsePicks(line string, n int) ([]int, error) {
	var out []int
	for _, f := range strings.Fields(strings.ReplaceAll(line, ",", " ")) {
		v, err := strconv.Atoi(f)
		if err != nil || v < 1 || v > n {
			return nil, fmt.Errorf("bad pick %q", f)
		}
		for _, seen := range out {
			if seen == v-1 {
				return nil, fmt.Errorf("duplicate pick %d", v)
			}
		}
		out = append(out, v-1)
	}
	return out, nil
}

func flipLoop(ctx context.Context, con *console, sess *play.FlipSession) error {
	for {
		switch {
		case sess.SwapOffered():
			con.println("(type /swap to exchange the cards)")
		case sess.IntegrationOffered():
			con.println("(type /conclude to bring both sides together)")
		}
		line, ok := con.read("you: ")
		force := strings.HasSuffix(line, "!")
		cmd := strings.TrimSuffix(line, "!")

		var err error
		switch {
		case !ok || line == "/quit":
			return nil
		case line == "":
			continue
		case cmd == "/swap":
			con.println("swapping...")
			err = con.reply(func(on func(string)) (string, error) { return sess.Swap(ctx, force, on) })
		case cmd == "/conclude":
			err = con.reply(func(on func(string)) (string, error) { return sess.Conclude(ctx, force, on) })
		default:
			err = con.reply(func(on func(string)) (string, error) { return sess.Send(ctx, line, on) })
		}
		if errors.Is(err, play.ErrInvalidTransition) {
			con.println("not yet:", err, "(append ! to force)")
			continue
		}
		if err != nil {
			return err
		}
	}
}

func heroCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hero",
		Short: "Walk the ten steps of the hero's journey",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.playConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			comp, err := composer(ctx)
			if err != nil {
				return err
			}
			con := newConsole(cmd)
			sess := play.NewHeroSession(opts.backend(), comp, cfg)
			st := sess.State()

			step := func(run func(on func(string)) error) error {
				return con.reply(func(on func(string)) (string, error) {
					if err := run(on); err != nil {
						return "", err
					}
					if st.Stage == play.HeroPlaying {
						return st.Question, nil
					}
					return st.Summary, nil
				})
			}

			header := func() {
				if info, ok := facilitator.HeroStepInfo(st.Step); ok {
					con.println(fmt.Sprintf("step %d/%d %s: %s", st.Step, facilitator.HeroStoryLength, info.Title, describe(*st.Card)))
				}
			}

			if err := step(func(on func(string)) error { return sess.Start(ctx, on) }); err != nil {
				return err
			}
			for st.Stage == play.HeroPlaying {
				header()
				line, ok := con.read("you (/skip): ")
				if !ok {
					return nil
				}
				if line == "" {
					continue
				}
				run := func(on func(string)) error { return sess.Answer(ctx, line, on) }
				if line == "/skip" {
					run = func(on func(string)) error { return sess.Skip(ctx, on) }
				}
				if err := step(run); err != nil {
					return err
				}
			}

			line, ok := con.read("talk about it? (y/n): ")
			if !ok {
				return nil
			}
			if !strings.EqualFold(line, "y") {
				return con.reply(func(on func(string)) (string, error) { return sess.SkipReflection(ctx, on) })
			}
			if err := con.reply(func(on func(string)) (string, error) { return sess.Talk(ctx, on) }); err != nil {
				return err
			}
			for {
				line, ok := con.read("you (/end): ")
				if !ok || line == "/end" {
					break
				}
				if line == "" {
					continue
				}
				if err := con.reply(func(on func(string)) (string, error) { return sess.Reflect(ctx, line, on) }); err != nil {
					return err
				}
			}
			return con.reply(func(on func(string)) (string, error) { return sess.End(ctx, on) })
		},
	}
}
