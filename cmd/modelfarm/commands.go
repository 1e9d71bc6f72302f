package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/modelfarm/pkg/chat"
	"github.com/rhuss/modelfarm/pkg/completions"
	"github.com/rhuss/modelfarm/pkg/embed"
)

func newChatCmd(opts *options) *cobra.Command {
	var choices int

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Send a message to the legacy chat endpoint",
		Args:  requireArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			defer c.Close()

			chatOpts := legacyOptions(opts, args)
			out := cmd.OutOrStdout()

			if choices > 1 {
				res, err := c.Legacy.ChatMultipleChoices(cmd.Context(), chat.ChatMultipleChoicesOptions{
					ChatOptions:  chatOpts,
					ChoicesCount: choices,
				})
				if err != nil {
					return err
				}
				if !res.OK {
					return res.Error
				}
				for i, choice := range res.Value.Choices {
					fmt.Fprintf(out, "[%d] %s\n", i+1, choice.Message.Content)
				}
				return nil
			}

			res, err := c.Legacy.Chat(cmd.Context(), chatOpts)
			if err != nil {
				return err
			}
			if !res.OK {
				return res.Error
			}
			fmt.Fprintln(out, res.Value.Message.Content)
			return nil
		},
	}
	cmd.Flags().IntVarP(&choices, "choices", "n", 1, "number of choices to request")
	return cmd
}

func newStreamCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stream [message...]",
		Short: "Stream a reply from the legacy chat endpoint",
		Args:  requireArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Legacy.ChatStream(cmd.Context(), legacyOptions(opts, args))
			if err != nil {
				return err
			}
			if !res.OK {
				return res.Error
			}

			out := cmd.OutOrStdout()
			for chunk, err := range res.Value.All() {
				if err != nil {
					return err
				}
				fmt.Fprint(out, chunk.Message.Content)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newCompleteCmd(opts *options) *cobra.Command {
	var streaming bool
	var system string

	cmd := &cobra.Command{
		Use:   "complete [message...]",
		Short: "Send a message to the chat completions endpoint",
		Args:  requireArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			defer c.Close()

			var messages []completions.ChatCompletionMessageRequestParam
			if system != "" {
				messages = append(messages, completions.ChatCompletionMessageRequestParam{Role: "system", Content: system})
			}
			messages = append(messages, completions.ChatCompletionMessageRequestParam{Role: "user", Content: strings.Join(args, " ")})

			params := completions.ChatOptionParams{
				Model:       opts.modelOr(string(chat.ModelChatBison)),
				Messages:    messages,
				Temperature: opts.temperaturePtr(),
				MaxTokens:   opts.maxTokensPtr(),
			}
			out := cmd.OutOrStdout()

			if !streaming {
				resp, err := c.Chat.Completions.Create(cmd.Context(), params)
				if err != nil {
					return err
				}
				for _, choice := range resp.Choices {
					if choice.Message.Content != nil {
						fmt.Fprintln(out, *choice.Message.Content)
					}
				}
				return nil
			}

			s, err := c.Chat.Completions.CreateStream(cmd.Context(), params)
			if err != nil {
				return err
			}
			for chunk, err := range s.All() {
				if err != nil {
					return err
				}
				for _, choice := range chunk.Choices {
					if choice.Delta.Content != nil {
						fmt.Fprint(out, *choice.Delta.Content)
					}
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&streaming, "stream", false, "stream the reply")
	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	return cmd
}

func newEmbedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "embed [text...]",
		Short: "Print one embedding vector per text",
		Args:  requireArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Embeddings.Embed(cmd.Context(), embed.EmbedOptions{
				Model:   embed.EmbeddingModel(opts.modelOr(string(embed.ModelTextEmbeddingGecko))),
				Content: args,
			})
			if err != nil {
				return err
			}
			if !res.OK {
				return res.Error
			}

			out := cmd.OutOrStdout()
			for i, e := range res.Value.Embeddings {
				suffix := ""
				if e.Truncated {
					suffix = " (truncated)"
				}
				fmt.Fprintf(out, "%s%s: %v\n", args[min(i, len(args)-1)], suffix, e.Values)
			}
			return nil
		},
	}
}

func legacyOptions(opts *options, args []string) chat.ChatOptions {
	return chat.ChatOptions{
		Model:           chat.ChatModel(opts.modelOr(string(chat.ModelChatBison))),
		Messages:        []chat.ChatMessage{{Author: "user", Content: strings.Join(args, " ")}},
		Temperature:     opts.temperaturePtr(),
		MaxOutputTokens: opts.maxTokensPtr(),
	}
}
