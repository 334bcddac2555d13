// Package main implements benchctl, the operator CLI for the bench
// harness: fetch tokens, probe service health, and fire a test order over
// gRPC.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/nemanja87/master-thesis-bench-runner/internal/backchannel"
	"github.com/nemanja87/master-thesis-bench-runner/internal/certs"
	"github.com/nemanja87/master-thesis-bench-runner/internal/orderspb"
	"github.com/nemanja87/master-thesis-bench-runner/pkg/tokenclient"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "benchctl",
		Short:   "Operator CLI for the bench harness",
		Version: version,
	}

	root.AddCommand(newTokenCmd(), newHealthCmd(), newOrderCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newTokenCmd() *cobra.Command {
	var (
		authority    string
		clientID     string
		clientSecret string
		scope        string
		caPath       string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Fetch a client-credentials access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, err := buildTransport(caPath)
			if err != nil {
				return err
			}

			client := tokenclient.New(tokenclient.Config{
				TokenURL:     authority + "/connect/token",
				ClientID:     clientID,
				ClientSecret: clientSecret,
				Scope:        scope,
				Transport:    transport,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			token, err := client.Token(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&authority, "authority", "https://localhost:5001", "token issuer base URL")
	cmd.Flags().StringVar(&clientID, "client-id", "bench-runner", "OAuth client id")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "bench-runner-secret", "OAuth client secret")
	cmd.Flags().StringVar(&scope, "scope", "", "requested scopes, space delimited (empty requests the full grant)")
	cmd.Flags().StringVar(&caPath, "ca", "", "PEM trust root for the issuer (any certificate accepted when empty)")

	return cmd
}

func newHealthCmd() *cobra.Command {
	var caPath string

	cmd := &cobra.Command{
		Use:   "health <url>...",
		Short: "Probe service health endpoints",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, err := buildTransport(caPath)
			if err != nil {
				return err
			}
			client := &http.Client{Transport: transport, Timeout: 10 * time.Second}

			var failed bool
			for _, base := range args {
				resp, err := client.Get(base + "/healthz")
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tUNREACHABLE\t%v\n", base, err)
					failed = true
					continue
				}
				body, _ := io.ReadAll(resp.Body)
				_ = resp.Body.Close()
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", base, resp.StatusCode, string(body))
				if resp.StatusCode != http.StatusOK {
					failed = true
				}
			}
			if failed {
				return fmt.Errorf("one or more probes failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&caPath, "ca", "", "PEM trust root (any certificate accepted when empty)")
	return cmd
}

func newOrderCmd() *cobra.Command {
	var (
		addr      string
		plaintext bool
		token     string
		customer  string
		skus      []string
		amount    float64
	)

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Create a test order over gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := insecure.NewCredentials()
			if !plaintext {
				creds = credentials.NewTLS(&tls.Config{
					MinVersion:         tls.VersionTLS12,
					InsecureSkipVerify: true,
				})
			}

			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if token != "" {
				ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
			}

			resp, err := orderspb.NewOrderServiceClient(conn).Create(ctx, &orderspb.OrderCreateRequest{
				CustomerID:  customer,
				ItemSkus:    skus,
				TotalAmount: amount,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s accepted=%t\n", resp.OrderID, resp.Accepted)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "gateway or order service address")
	cmd.Flags().BoolVar(&plaintext, "plaintext", false, "use h2c instead of TLS")
	cmd.Flags().StringVar(&token, "token", "", "bearer token to attach")
	cmd.Flags().StringVar(&customer, "customer", "bench-customer", "customer id")
	cmd.Flags().StringSliceVar(&skus, "sku", []string{"sku-1"}, "item SKUs")
	cmd.Flags().Float64Var(&amount, "amount", 9.99, "order total")

	return cmd
}

// buildTransport returns an HTTP transport trusting the given PEM root, or
// accepting any server certificate when no root is given.
func buildTransport(caPath string) (http.RoundTripper, error) {
	if caPath == "" {
		return backchannel.NewInsecureTransport(), nil
	}
	root, err := certs.LoadTrustRoot(caPath, false)
	if err != nil {
		return nil, err
	}
	return backchannel.NewTransport(root, nil), nil
}
