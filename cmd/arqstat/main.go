// Command arqstat polls the status gateway of a running arqecho-style
// process and prints the registered sessions as a table, exercising
// pkg/gateway's read-only JSON endpoint from the command line.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
)

type statusEntry struct {
	Conv        uint32 `json:"conv"`
	Peer        string `json:"peer"`
	CWnd        uint32 `json:"cwnd"`
	SSThresh    uint32 `json:"ssthresh"`
	SRTT        int32  `json:"srtt_ms"`
	RTO         uint32 `json:"rto_ms"`
	Retransmits uint64 `json:"retransmits"`
	WaitSnd     int    `json:"wait_snd"`
	DeadLink    bool   `json:"dead_link"`
}

func main() {
	url := flag.String("url", "http://localhost:9001/status", "status gateway URL")
	watch := flag.Duration("watch", 0, "if set, repeat the query at this interval")
	flag.Parse()

	for {
		if err := printOnce(*url); err != nil {
			log.WithError(err).Error("[ARQSTAT] query failed")
		}
		if *watch <= 0 {
			return
		}
		time.Sleep(*watch)
	}
}

func printOnce(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var entries []statusEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONV\tPEER\tCWND\tSSTHRESH\tSRTT\tRTO\tRETRANS\tWAITSND\tDEAD")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%dms\t%dms\t%d\t%d\t%t\n",
			e.Conv, e.Peer, e.CWnd, e.SSThresh, e.SRTT, e.RTO, e.Retransmits, e.WaitSnd, e.DeadLink)
	}
	return w.Flush()
}
