// Package browser implements the --browse terminal inspector: a
// rivo/tview application, driven by gdamore/tcell/v2, that shows the
// finished link result — modules, their sections and symbols, the
// final section layout and the global symbols. Relocations are not
// listed.
package browser

import (
	"fmt"

	"github.com/SapphireAmoeba5/rasm/pkg/linker"
	"github.com/SapphireAmoeba5/rasm/pkg/module"
	"github.com/SapphireAmoeba5/rasm/pkg/utils"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Run launches the inspector over the given modules and their linked
// Program, blocking until the user quits ('q' or Ctrl-C). It returns
// an error only if the terminal UI itself fails to start.
func Run(modules []module.Module, prog linker.Program) error {
	app := tview.NewApplication()

	tree := buildTree(modules, prog)
	layout := buildLayout(modules, prog)

	pages := tview.NewPages()
	flex := tview.NewFlex().
		AddItem(tree, 0, 1, true).
		AddItem(layout, 0, 1, false)
	pages.AddPage("main", flex, true, true)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return app.SetRoot(pages, true).SetFocus(tree).Run()
}

func buildTree(modules []module.Module, prog linker.Program) *tview.TreeView {
	root := tview.NewTreeNode("modules").SetColor(tcell.ColorYellow)
	tree := tview.NewTreeView().SetRoot(root).SetCurrentNode(root)

	for mi, m := range modules {
		modLabel := fmt.Sprintf("%s [sections: %s]", m.Filename, utils.FormatSlice(m.SectionOrder, ", "))
		modNode := tview.NewTreeNode(modLabel).SetSelectable(true).SetColor(tcell.ColorGreen)
		for _, secName := range m.SectionOrder {
			included := prog.SectionIncluded[mi][secName]
			label := fmt.Sprintf("%s (offset %s, included=%v)", secName, utils.FormatUintHex(prog.SectionOffsets[mi][secName], 8), included)
			secNode := tview.NewTreeNode(label).SetSelectable(true).SetColor(tcell.ColorAqua)

			for _, name := range m.Symbols.Names() {
				sym, _ := m.Symbols.Get(name)
				if sym.Section != secName {
					continue
				}
				symNode := tview.NewTreeNode(fmt.Sprintf("%s = 0x%x (%s)", name, sym.Value, sym.Kind)).SetSelectable(true)
				secNode.AddChild(symNode)
			}
			modNode.AddChild(secNode)
		}
		root.AddChild(modNode)
	}

	return tree
}

func buildLayout(modules []module.Module, prog linker.Program) *tview.TextView {
	view := tview.NewTextView().SetDynamicColors(true)
	view.SetBorder(true).SetTitle("linked image layout")

	fmt.Fprintf(view, "total bytes: %d\n\n", len(prog.Bytes))
	for mi, m := range modules {
		for _, secName := range m.SectionOrder {
			if !prog.SectionIncluded[mi][secName] {
				continue
			}
			size := len(m.Sections[secName].Bytes())
			fmt.Fprintf(view, "%s:%s  offset=%s  size=%d\n", m.Filename, secName, utils.FormatUintHex(prog.SectionOffsets[mi][secName], 8), size)
		}
	}

	fmt.Fprintf(view, "\nglobals:\n")
	for name, mi := range prog.Globals {
		fmt.Fprintf(view, "  %s -> %s\n", name, modules[mi].Filename)
	}

	return view
}
