// Command sample-logs writes synthetic auth logs that exercise each detector,
// for trying `loglens analyze` and `loglens serve` locally.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type scenario struct {
	name  string
	lines func(start time.Time) []string
}

var scenarios = []scenario{
	{name: "bruteforce.log", lines: bruteForce},
	{name: "tampering.log", lines: tampering},
	{name: "admin.log", lines: adminProfile},
	{name: "routine.log", lines: routine},
}

func main() {
	dir := flag.String("dir", "sample-logs", "directory to write the scenario files into")
	flag.Parse()

	logger := log.New(log.Writer(), "sample-logs ", log.LstdFlags)
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		logger.Fatalf("create %s: %v", *dir, err)
	}

	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for _, sc := range scenarios {
		path := filepath.Join(*dir, sc.name)
		content := strings.Join(sc.lines(start), "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.Fatalf("write %s: %v", path, err)
		}
		logger.Printf("wrote %s", path)
	}
}

func stamp(start time.Time, offset time.Duration) string {
	return start.Add(offset).Format("2006-01-02 15:04:05")
}

func bruteForce(start time.Time) []string {
	lines := make([]string, 0, 10)
	for i := 0; i < 8; i++ {
		lines = append(lines, fmt.Sprintf("%s sshd[2211]: Failed login for user=root from 203.0.113.7 port 5%03d",
			stamp(start, time.Duration(i)*time.Second), i))
	}
	lines = append(lines, fmt.Sprintf("%s sshd[2211]: user=root locked out after repeated failures from 203.0.113.7",
		stamp(start, 9*time.Second)))
	return lines
}

func tampering(start time.Time) []string {
	return []string{
		fmt.Sprintf("%s EventID=4624 information: Successful logon user=alice from 192.168.1.20", stamp(start, 0)),
		fmt.Sprintf("%s EventID=1102 warning: The audit log was cleared user=alice", stamp(start, 2*time.Minute)),
		fmt.Sprintf("%s EventID=104 critical: System log file purged", stamp(start, 3*time.Minute)),
	}
}

func adminProfile(start time.Time) []string {
	ips := []string{"10.1.0.1", "10.1.0.2", "10.1.0.3", "10.1.0.4"}
	lines := make([]string, 0, 13)
	for i := 0; i < 11; i++ {
		lines = append(lines, fmt.Sprintf("%s auth: authentication failed for user=admin from %s",
			stamp(start, time.Duration(i)*time.Minute), ips[i%len(ips)]))
	}
	for i := 0; i < 2; i++ {
		lines = append(lines, fmt.Sprintf("%s auth: user=admin logged in successfully from %s",
			stamp(start, time.Duration(20+i)*time.Minute), ips[0]))
	}
	return lines
}

func routine(start time.Time) []string {
	return []string{
		fmt.Sprintf("%s cron[88]: info: job backup started", stamp(start, 0)),
		fmt.Sprintf("%s cron[88]: info: job backup finished", stamp(start, 5*time.Minute)),
		fmt.Sprintf("%s systemd: Started Daily apt upgrade", stamp(start, 10*time.Minute)),
	}
}
