package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/audioreader/internal/playback"
)

var (
	locateTime     float64
	locateDuration float64
	locateMode     string
	seekIndex      int
)

var locateCmd = &cobra.Command{
	Use:   "locate <documentId>",
	Short: "Show the word being read at a playback time",
	Long: `locate loads a ready document and reports the word and sentence highlighted
at --time seconds. Speech marks are used when the document has them;
otherwise the position is estimated from --duration. With --seek it prints
the playback time for a word or sentence index instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		view, err := apiClient().Reader(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		mode := playback.Mode(locateMode)
		syncer := playback.New(view.CleanedText, view.SpeechMarks, mode)
		out := cmd.OutOrStdout()

		if cmd.Flags().Changed("seek") {
			fmt.Fprintf(out, "%.3f\n", syncer.SeekTime(seekIndex, mode, locateDuration))
			return nil
		}

		pos := syncer.Update(locateTime, locateDuration)
		words, sentences := syncer.Words(), syncer.Sentences()
		if len(words) == 0 {
			fmt.Fprintln(out, "document has no words")
			return nil
		}

		fmt.Fprintf(out, "word %d: %s\n", pos.WordIndex, words[pos.WordIndex])
		if len(sentences) > 0 {
			fmt.Fprintf(out, "sentence %d: %s\n", pos.SentenceIndex, sentences[pos.SentenceIndex])
		}
		if !syncer.HasMarks() {
			fmt.Fprintln(cmd.ErrOrStderr(), "no speech marks, position is estimated")
		}
		return nil
	},
}

func init() {
	locateCmd.Flags().Float64Var(&locateTime, "time", 0, "playback time in seconds")
	locateCmd.Flags().Float64Var(&locateDuration, "duration", 0, "audio duration in seconds")
	locateCmd.Flags().StringVar(&locateMode, "mode", string(playback.ModeWord), "highlight granularity: word or sentence")
	locateCmd.Flags().IntVar(&seekIndex, "seek", 0, "print the playback time of this token index")
}
