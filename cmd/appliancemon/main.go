// appliancemon watches smart-plug power draw to detect appliance cycles
// and pushes a notification when a cycle completes. The discover
// subcommand scans the LAN for compatible plugs.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/MrSnakeDoc/hometools/internal/app"
	"github.com/MrSnakeDoc/hometools/internal/kasa"
	"github.com/MrSnakeDoc/hometools/internal/version"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "discover" {
		discover(os.Args[2:])
		return
	}

	var showVersion bool
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: appliancemon [flags]\n")
		fmt.Fprintf(os.Stderr, "       appliancemon discover [--cidr CIDR | hosts...]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if showVersion {
		fmt.Println(version.String("appliancemon"))
		return
	}

	a, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "appliancemon: %v\n", err)
		os.Exit(1)
	}
	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "appliancemon: %v\n", err)
		os.Exit(1)
	}
}

func discover(args []string) {
	flags := pflag.NewFlagSet("discover", pflag.ExitOnError)
	cidr := flags.String("cidr", "", "IPv4 range to scan (ex: 192.168.1.0/24)")
	timeout := flags.Duration("timeout", 2*time.Second, "per-host probe timeout")
	_ = flags.Parse(args)

	hosts := flags.Args()
	if *cidr != "" {
		expanded, err := kasa.ExpandCIDR(*cidr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "appliancemon discover: %v\n", err)
			os.Exit(2)
		}
		hosts = append(hosts, expanded...)
	}
	if len(hosts) == 0 {
		fmt.Fprintln(os.Stderr, "appliancemon discover: provide --cidr or host addresses")
		os.Exit(2)
	}

	fmt.Printf("Probing %d host(s)...\n", len(hosts))
	found := kasa.Discover(context.Background(), hosts, *timeout)
	if len(found) == 0 {
		fmt.Println("No Kasa devices found.")
		return
	}

	for _, device := range found {
		emeter := "no energy meter"
		if device.Info.HasEmeter() {
			emeter = "energy meter"
		}
		fmt.Printf("  %s  %s (%s, %s)\n", device.Addr, device.Info.Alias, device.Info.Model, emeter)
	}
}
