package review

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"outreach-service/internal/modal"
)

// Decider records decisions; *campaign.Orchestrator satisfies it.
type Decider interface {
	RecordDecision(ctx context.Context, runID string, d modal.ReviewDecision) error
}

// Summary counts what happened in one console session.
type Summary struct {
	Approved int
	Edited   int
	Rejected int
	Skipped  int
	Errors   int
}

// Console is a line-oriented reviewer for a terminal.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	reviewer string
}

func NewConsole(in io.Reader, out io.Writer, reviewer string) *Console {
	return &Console{in: bufio.NewReader(in), out: out, reviewer: reviewer}
}

var errQuit = errors.New("quit")

// Run shows each task once and records at most one decision per contact.
// A decision the decider refuses is reported and the session moves on.
func (c *Console) Run(ctx context.Context, runID string, tasks []modal.ReviewTask, decider Decider) (Summary, error) {
	var sum Summary
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		c.show(i+1, len(tasks), task)

		d, err := c.ask(task)
		if errors.Is(err, errQuit) {
			sum.Skipped += len(tasks) - i
			return sum, nil
		}
		if err != nil {
			return sum, err
		}
		if d == nil {
			sum.Skipped++
			continue
		}
		if err := decider.RecordDecision(ctx, runID, *d); err != nil {
			fmt.Fprintf(c.out, "  could not record decision: %v\n", err)
			sum.Errors++
			continue
		}
		switch d.Outcome {
		case modal.OutcomeApproved:
			sum.Approved++
		case modal.OutcomeEdited:
			sum.Edited++
		case modal.OutcomeRejected:
			sum.Rejected++
		}
	}
	return sum, nil
}

func (c *Console) show(n, total int, task modal.ReviewTask) {
	d := task.Draft
	fmt.Fprintf(c.out, "\n[%d/%d] %s <%s> at %s\n", n, total, task.Name, task.Email, task.Company)
	fmt.Fprintf(c.out, "style=%s generator=%s confidence=%.2f\n", d.Style, d.Generator, d.Confidence)
	if d.Fallback {
		fmt.Fprintln(c.out, "note: written by the template fallback")
	}
	fmt.Fprintf(c.out, "Subject: %s\n\n%s\n\n", d.Subject, d.Body)
}

func (c *Console) ask(task modal.ReviewTask) (*modal.ReviewDecision, error) {
	for {
		fmt.Fprint(c.out, "[a]pprove, [e]dit, [r]eject, [s]kip, [q]uit: ")
		line, err := c.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errQuit
			}
			return nil, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "a", "approve":
			d := Approve(task, c.reviewer)
			return &d, nil
		case "e", "edit":
			body, err := c.readBody()
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(body) == "" {
				fmt.Fprintln(c.out, "  empty body, not saved")
				continue
			}
			d := Edit(task, body, c.reviewer)
			return &d, nil
		case "r", "reject":
			fmt.Fprint(c.out, "reason (optional): ")
			notes, err := c.readLine()
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			d := Reject(task, c.reviewer, strings.TrimSpace(notes))
			return &d, nil
		case "s", "skip":
			return nil, nil
		case "q", "quit":
			return nil, errQuit
		}
	}
}

// readBody reads lines until one containing only ".".
func (c *Console) readBody() (string, error) {
	fmt.Fprintln(c.out, "enter the new body, end with a line containing only \".\"")
	var lines []string
	for {
		line, err := c.readLine()
		if strings.TrimSpace(line) == "." {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				lines = append(lines, line)
				break
			}
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line != "" && errors.Is(err, io.EOF) {
		return line, nil
	}
	return line, err
}
