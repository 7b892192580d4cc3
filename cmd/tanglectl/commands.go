package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/node/registry"
	"xdao.co/streams-tangle/transport"
)

func (a *app) sendCmd() *cobra.Command {
	var (
		link    string
		bodyHex string
		file    string
	)
	cmd := &cobra.Command{
		Use:   "send --link <appinst:msgid> [--body-hex <hex> | --file <path>]",
		Short: "Send a message body to a link (reads stdin without --body-hex or --file)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := transport.ParseLink(link)
			if err != nil {
				return err
			}
			body, err := a.readBody(bodyHex, file)
			if err != nil {
				return err
			}
			return a.client.SendMessage(cmd.Context(), &transport.BinaryMessage{Link: l, Body: body})
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "message link <appinst-hex>:<msgid-hex>")
	cmd.Flags().StringVar(&bodyHex, "body-hex", "", "message body as hex")
	cmd.Flags().StringVar(&file, "file", "", "read message body from file")
	_ = cmd.MarkFlagRequired("link")
	cmd.MarkFlagsMutuallyExclusive("body-hex", "file")
	return cmd
}

func (a *app) readBody(bodyHex, file string) ([]byte, error) {
	switch {
	case bodyHex != "":
		return hex.DecodeString(strings.TrimSpace(bodyHex))
	case file != "":
		return os.ReadFile(file)
	default:
		return io.ReadAll(a.in)
	}
}

func (a *app) recvCmd() *cobra.Command {
	var link string
	cmd := &cobra.Command{
		Use:   "recv --link <appinst:msgid>",
		Short: "Print every message body stored under a link, one hex line each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := transport.ParseLink(link)
			if err != nil {
				return err
			}
			msgs, err := a.client.RecvMessages(cmd.Context(), l)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				_, _ = fmt.Fprintln(a.out, hex.EncodeToString(m.Body))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "message link <appinst-hex>:<msgid-hex>")
	_ = cmd.MarkFlagRequired("link")
	return cmd
}

func (a *app) recvOneCmd() *cobra.Command {
	var (
		link string
		raw  bool
	)
	cmd := &cobra.Command{
		Use:   "recv-one --link <appinst:msgid>",
		Short: "Print the single message body stored under a link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := transport.ParseLink(link)
			if err != nil {
				return err
			}
			m, err := a.client.RecvMessage(cmd.Context(), l)
			if err != nil {
				return err
			}
			if raw {
				_, err = a.out.Write(m.Body)
				return err
			}
			_, _ = fmt.Fprintln(a.out, hex.EncodeToString(m.Body))
			return nil
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "message link <appinst-hex>:<msgid-hex>")
	cmd.Flags().BoolVar(&raw, "raw", false, "write the body bytes instead of hex")
	_ = cmd.MarkFlagRequired("link")
	return cmd
}

func (a *app) tipsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tips",
		Short: "Print two tips new messages would attach to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tips, err := transport.ResolveTips(cmd.Context(), a.client.Node())
			if err != nil {
				return err
			}
			for _, id := range tips {
				_, _ = fmt.Fprintln(a.out, cidutil.Hex(id))
			}
			return nil
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the first node's info as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.client.Node().Info(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "backends",
		Short:       "List linked node backends",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range registry.List(registry.UsageClient) {
				if b.Description == "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b.Name)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", b.Name, b.Description)
			}
			return nil
		},
	}
}
