package kv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colorful-bubbles/idb-keyval/cmd/util"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value] [ttlSeconds]",
		Short: "Sets the value for a key, optionally with a TTL in seconds",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			var ttl uint64
			if len(args) == 3 {
				parsed, err := strconv.ParseUint(args[2], 10, 64)
				if err != nil {
					return fmt.Errorf("ttlSeconds must be a number: %w", err)
				}
				ttl = parsed
			}
			if err := remote.Set(util.GetStore(), key, []byte(value), ttl); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if resp, ok, err := remote.Get(util.GetStore(), key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := remote.Del(util.GetStore(), key); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if found, err := remote.Has(util.GetStore(), key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t\n", key, found)
			}
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists the keys of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := remote.Keys(util.GetStore())
			if err != nil {
				return err
			}
			fmt.Printf("store=%s, keys=[%s]\n", util.GetStore(), strings.Join(keys, ", "))
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes every entry of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := remote.Clear(util.GetStore()); err != nil {
				return err
			}
			fmt.Println("clear successfully")
			return nil
		},
	}
)
