// Command arqecho is a minimal echo client/server built on pkg/netconn,
// mirroring the teacher's cmd/sdo_client as a thin flag-driven exercise
// of the library rather than production tooling.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/arqnet/arq/pkg/netconn"
	"github.com/arqnet/arq/pkg/preset"
)

func main() {
	listen := flag.String("listen", "", "run as server, listening on this UDP address (e.g. :9000)")
	dial := flag.String("dial", "", "run as client, dialing this UDP address")
	presetName := flag.String("preset", "fast", "tuning preset: normal, fast, fast2, fastest")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	profiles := preset.Builtins()
	p, ok := profiles[*presetName]
	if !ok {
		log.Fatalf("unknown preset %q", *presetName)
	}

	switch {
	case *listen != "":
		runServer(*listen, p)
	case *dial != "":
		runClient(*dial, p)
	default:
		fmt.Fprintln(os.Stderr, "usage: arqecho -listen :9000 | -dial host:9000")
		os.Exit(2)
	}
}

func sessionOpts(p preset.Profile) []netconn.Option {
	return []netconn.Option{
		netconn.WithNodelay(p.Nodelay, p.Interval, p.Resend, p.NoCwnd),
		netconn.WithWindow(p.SndWnd, p.RcvWnd),
	}
}

func runServer(addr string, p preset.Profile) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		log.WithError(err).Fatal("listen")
	}
	ctx := context.Background()
	ln := netconn.Listen(ctx, pc, sessionOpts(p)...)
	log.WithField("addr", addr).Info("[ARQECHO] listening")
	for {
		sess, err := ln.Accept()
		if err != nil {
			log.WithError(err).Error("[ARQECHO] accept failed")
			return
		}
		go echoLoop(sess)
	}
}

func runClient(addr string, p preset.Profile) {
	ctx := context.Background()
	sess, err := netconn.Dial(ctx, "udp", addr, sessionOpts(p)...)
	if err != nil {
		log.WithError(err).Fatal("[ARQECHO] dial")
	}
	defer sess.Close()

	scanner := bufio.NewScanner(os.Stdin)
	buf := make([]byte, 64*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if _, err := sess.Write([]byte(line)); err != nil {
			log.WithError(err).Error("[ARQECHO] write")
			continue
		}
		n, err := sess.Read(buf)
		if err != nil {
			log.WithError(err).Error("[ARQECHO] read")
			return
		}
		fmt.Println(string(buf[:n]))
	}
}

func echoLoop(sess *netconn.Session) {
	defer sess.Close()
	buf := make([]byte, 64*1024)
	for {
		n, err := sess.Read(buf)
		if err != nil {
			return
		}
		if _, err := sess.Write(buf[:n]); err != nil {
			return
		}
	}
}
