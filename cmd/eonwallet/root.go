package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eon-protocol/eonwallet"
	"github.com/eon-protocol/eonwallet/accounts/permissions"
	"github.com/eon-protocol/eonwallet/accounts/wallet"
	"github.com/eon-protocol/eonwallet/ledger"
)

func defaultStatePath() string {
	if p := os.Getenv("EON_WALLET_STATE"); p != "" {
		return p
	}
	return "eonwallet.state"
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var verbose bool
	root := &cobra.Command{
		Use:           "eonwallet",
		Short:         "Deploy and drive wallet contracts on a local ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger.Set(logger.Logger().Level(level))
		},
	}
	root.PersistentFlags().StringVar(&a.statePath, "state", defaultStatePath(), "state file (env EON_WALLET_STATE)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log settled and rejected transactions")

	root.AddCommand(
		initCmd(a),
		accountsCmd(a),
		deployCmd(a),
		depositCmd(a),
		withdrawCmd(a),
		updateCmd(a),
		rotateCmd(a),
		showCmd(a),
	)
	return root
}

// loaded wraps a command body between loading and saving the state.
func loaded(a *app, body func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.load(); err != nil {
			return err
		}
		if err := body(cmd, args); err != nil {
			return err
		}
		return a.save()
	}
}

func send(ctx context.Context, tx *ledger.Transaction, keys ...*ledger.PrivateKey) error {
	if err := tx.Prove(ctx); err != nil {
		return err
	}
	if err := tx.Sign(keys...); err != nil {
		return err
	}
	return tx.Send(ctx)
}

func initCmd(a *app) *cobra.Command {
	var proofs, force bool
	var accounts int
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a fresh ledger with funded test accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.statePath); err == nil && !force {
				return fmt.Errorf("%s exists, pass --force to overwrite", a.statePath)
			}
			if proofs && !eonwallet.UsesCachedSRS() {
				return errors.New("--proofs needs EON_SRS=cached so verification keys survive between runs")
			}
			a.st = state{ProofsEnabled: proofs, Wallets: make(map[string]walletRecord)}
			cfg := a.config()
			cfg.TestAccounts = accounts
			l, err := ledger.NewLocal(cfg)
			if err != nil {
				return err
			}
			a.l = l
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s with %d test accounts\n", a.statePath, accounts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&proofs, "proofs", false, "compile contracts and verify proofs")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing state file")
	cmd.Flags().IntVar(&accounts, "accounts", ledger.DEFAULT_TEST_ACCOUNTS, "number of funded test accounts")
	return cmd
}

func accountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List test accounts and deployed wallets",
		Args:  cobra.NoArgs,
		RunE: loaded(a, func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for i, ta := range a.l.TestAccounts() {
				bal, err := a.l.Balance(ta.Address)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d\t%s\t%s\n", i, ta.Address, bal.Dec())
			}
			for _, label := range slices.Sorted(maps.Keys(a.st.Wallets)) {
				rec, k, err := a.wallet(label)
				if err != nil {
					return err
				}
				bal, err := a.l.Balance(k.Address())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", label, rec.Contract, k.Address(), bal.Dec())
			}
			return nil
		}),
	}
}

func deployCmd(a *app) *cobra.Command {
	var payer int
	cmd := &cobra.Command{
		Use:   "deploy <contract> <label>",
		Short: "Deploy a wallet contract to a new account",
		Long:  "Contracts: SecureWallet, SecureWalletExtended, UnsecureWallet, ModifiedUnsecureWallet.",
		Args:  cobra.ExactArgs(2),
		RunE: loaded(a, func(cmd *cobra.Command, args []string) error {
			if _, ok := a.st.Wallets[args[1]]; ok {
				return fmt.Errorf("label %q already used", args[1])
			}
			c, err := a.contract(args[0])
			if err != nil {
				return err
			}
			p, err := a.testAccount(payer)
			if err != nil {
				return err
			}
			key, err := ledger.GenerateKey()
			if err != nil {
				return err
			}
			tx := ledger.NewTransaction(a.l, p.Address, 0)
			tx.FundNewAccount(p.Address)
			c.Deploy(tx, key.Address())
			if err := send(cmd.Context(), tx, p.Key, key); err != nil {
				return err
			}
			a.st.Wallets[args[1]] = walletRecord{Contract: c.Name, Key: key.Bytes()}
			fmt.Fprintf(cmd.OutOrStdout(), "deployed %s at %s\n", c.Name, key.Address())
			return nil
		}),
	}
	cmd.Flags().IntVar(&payer, "payer", 0, "test account paying for the deployment")
	return cmd
}

func depositCmd(a *app) *cobra.Command {
	var from int
	cmd := &cobra.Command{
		Use:   "deposit <label> <amount>",
		Short: "Send funds from a test account to a wallet",
		Args:  cobra.ExactArgs(2),
		RunE: loaded(a, func(cmd *cobra.Command, args []string) error {
			_, k, err := a.wallet(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return err
			}
			src, err := a.testAccount(from)
			if err != nil {
				return err
			}
			acc, err := a.l.Account(k.Address())
			if err != nil {
				return err
			}
			tx := ledger.NewTransaction(a.l, src.Address, 0)
			recv := tx.Transfer(tx.CreateSigned(src.Address), k.Address(), amount)
			keys := []*ledger.PrivateKey{src.Key}
			// the wallet co-signs when receiving is restricted
			if acc.Permissions.Get(permissions.Receive) != permissions.None {
				recv.Authorization.Kind = permissions.KindSignature
				keys = append(keys, k)
			}
			if err := send(cmd.Context(), tx, keys...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deposited %d into %s\n", amount, args[0])
			return nil
		}),
	}
	cmd.Flags().IntVar(&from, "from", 0, "test account to send from")
	return cmd
}

func withdrawCmd(a *app) *cobra.Command {
	var to int
	cmd := &cobra.Command{
		Use:   "withdraw <label> <amount>",
		Short: "Pull funds out of a wallet with an unauthorized account update",
		Long:  "Signed only by the receiving test account. Succeeds on wallets whose send permission is none.",
		Args:  cobra.ExactArgs(2),
		RunE: loaded(a, func(cmd *cobra.Command, args []string) error {
			_, k, err := a.wallet(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return err
			}
			dst, err := a.testAccount(to)
			if err != nil {
				return err
			}
			tx := ledger.NewTransaction(a.l, dst.Address, 0)
			tx.Transfer(tx.Create(k.Address()), dst.Address, amount)
			if err := send(cmd.Context(), tx, dst.Key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrew %d from %s to test account %d\n", amount, args[0], to)
			return nil
		}),
	}
	cmd.Flags().IntVar(&to, "to", 1, "test account receiving the funds")
	return cmd
}

func updateCmd(a *app) *cobra.Command {
	var payer int
	cmd := &cobra.Command{
		Use:   "update <label>",
		Short: "Call update on a wallet: num becomes num + 2",
		Args:  cobra.ExactArgs(1),
		RunE: loaded(a, func(cmd *cobra.Command, args []string) error {
			rec, k, err := a.wallet(args[0])
			if err != nil {
				return err
			}
			c, err := a.contract(rec.Contract)
			if err != nil {
				return err
			}
			p, err := a.testAccount(payer)
			if err != nil {
				return err
			}
			num, err := wallet.Num(a.l, k.Address())
			if err != nil {
				return err
			}
			tx := ledger.NewTransaction(a.l, p.Address, 0)
			if _, err := c.Update(tx, k.Address(), num); err != nil {
				return err
			}
			if err := send(cmd.Context(), tx, p.Key); err != nil {
				return err
			}
			num, err = wallet.Num(a.l, k.Address())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s num = %s\n", args[0], num.String())
			return nil
		}),
	}
	cmd.Flags().IntVar(&payer, "payer", 0, "test account paying the fee")
	return cmd
}

func rotateCmd(a *app) *cobra.Command {
	var payer int
	cmd := &cobra.Command{
		Use:   "rotate <label> <contract>",
		Short: "Call updateVerificationKey to switch a wallet to another contract",
		Args:  cobra.ExactArgs(2),
		RunE: loaded(a, func(cmd *cobra.Command, args []string) error {
			rec, k, err := a.wallet(args[0])
			if err != nil {
				return err
			}
			cur, err := a.contract(rec.Contract)
			if err != nil {
				return err
			}
			next, err := a.contract(args[1])
			if err != nil {
				return err
			}
			p, err := a.testAccount(payer)
			if err != nil {
				return err
			}
			tx := ledger.NewTransaction(a.l, p.Address, 0)
			if _, err := cur.UpdateVerificationKey(tx, k.Address(), next.VerificationKey()); err != nil {
				return err
			}
			if err := send(cmd.Context(), tx, p.Key); err != nil {
				return err
			}
			rec.Contract = next.Name
			a.st.Wallets[args[0]] = rec
			fmt.Fprintf(cmd.OutOrStdout(), "%s now runs %s\n", args[0], next.Name)
			return nil
		}),
	}
	cmd.Flags().IntVar(&payer, "payer", 0, "test account paying the fee")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <label>",
		Short: "Print a wallet account",
		Args:  cobra.ExactArgs(1),
		RunE: loaded(a, func(cmd *cobra.Command, args []string) error {
			rec, k, err := a.wallet(args[0])
			if err != nil {
				return err
			}
			acc, err := a.l.Account(k.Address())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "address:     %s\n", acc.Address)
			fmt.Fprintf(out, "contract:    %s\n", rec.Contract)
			fmt.Fprintf(out, "balance:     %s\n", acc.Balance.Dec())
			fmt.Fprintf(out, "nonce:       %d\n", acc.Nonce)
			fmt.Fprintf(out, "num:         %s\n", acc.AppState[0].String())
			fmt.Fprintf(out, "permissions: %s\n", acc.Permissions)
			return nil
		}),
	}
}
