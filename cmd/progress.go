package cmd

import "github.com/pterm/pterm"

// progresser shows which mailbox is being checked. It does nothing in quiet mode.
type progresser struct {
	pbar *pterm.ProgressbarPrinter
}

func newProgresser(total int) *progresser {
	if global.quiet || total == 0 {
		return &progresser{}
	}
	pbar, err := pterm.DefaultProgressbar.WithTotal(total).WithRemoveWhenDone().Start()
	if err != nil {
		return &progresser{}
	}
	return &progresser{
		pbar: pbar,
	}
}

func (p *progresser) Title(title string) {
	if p.pbar == nil {
		return
	}
	p.pbar.UpdateTitle(title)
}

func (p *progresser) Increment() {
	if p.pbar == nil {
		return
	}
	p.pbar.Increment()
}

func (p *progresser) Stop() {
	if p.pbar == nil {
		return
	}
	_, _ = p.pbar.Stop()
}
