package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mbocsi/gomo/client"
)

const usage = `usage: gomoctl [-bridge host:port] <command>

commands:
  list             print every registered device and its state
  status <name>    print the state of one device
  on <name>        turn a device on
  off <name>       turn a device off

Without -bridge the bridge is located over mDNS.`

func main() {
	bridge := flag.String("bridge", "", "Bridge monitor address (host:port)")
	timeout := flag.Duration("timeout", 5*time.Second, "Discovery timeout")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	addr := *bridge
	if addr == "" {
		found, err := client.Discover(*timeout)
		if err != nil {
			fatal(err)
		}
		addr = fmt.Sprintf("%s:%d", found.Address, found.Port)
	}

	var err error
	switch args[0] {
	case "list":
		err = get(addr, "/devices")
	case "status":
		err = withName(args, func(name string) error {
			return get(addr, "/devices/"+name)
		})
	case "on", "off":
		err = withName(args, func(name string) error {
			return post(addr, fmt.Sprintf("/devices/%s/%s", name, args[0]))
		})
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func withName(args []string, fn func(name string) error) error {
	if len(args) < 2 {
		return fmt.Errorf("%s requires a device name", args[0])
	}
	return fn(args[1])
}

func get(addr, path string) error {
	resp, err := http.Get("http://" + addr + path)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func post(addr, path string) error {
	resp, err := http.Post("http://"+addr+path, "application/json", nil)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned %s: %s", resp.Status, body)
	}
	fmt.Println(string(body))
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "gomoctl:", err)
	os.Exit(1)
}
