// Package cli is a small flag parser and application runner. Besides long
// and short options it understands prefix flags such as -Fclasses or
// -Wno-shadow, grouped into tables on the help page.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	val, err := strconv.ParseBool(s)
	if err != nil && s != "" {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val || s == ""
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil { return fmt.Errorf("invalid integer value '%s': %w", s, err) }
	*v.p = n
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }
func (v *intValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// FlagGroup is a family of on/off switches sharing a prefix, e.g. every
// -F<feature> and -Fno-<feature>.
type FlagGroup struct {
	Name      string
	GroupType string
	Flags     []FlagGroupEntry
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name          string
	flags         map[string]*Flag
	shorthands    map[string]*Flag
	specialPrefix map[string]*Flag
	args          []string
	flagGroups    []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:          name,
		flags:         make(map[string]*Flag),
		shorthands:    make(map[string]*Flag),
		specialPrefix: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, expectedType string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), expectedType)
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, "", expectedType)
}

// Special registers a prefix flag: every -<prefix><rest> argument appends
// <rest> to p.
func (f *FlagSet) Special(p *[]string, prefix, usage, expectedType string) {
	*p = []string{}
	f.Var(&listValue{p}, prefix, "", usage, "", expectedType)
	f.specialPrefix[prefix] = f.flags[prefix]
}

// AddFlagGroup defines a <prefix><name> and <prefix>no-<name> switch per entry.
func (f *FlagSet) AddFlagGroup(name, groupType string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{Name: name, GroupType: groupType, Flags: entries})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" { panic("flag name cannot be empty") }
	if _, ok := f.flags[name]; ok { panic(fmt.Sprintf("flag redefined: %s", name)) }

	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok { panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand)) }
		f.shorthands[shorthand] = flag
	}
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case strings.HasPrefix(arg, "--"):
			if err := f.parseLong(arg[2:], arguments, &i); err != nil { return err }
		default:
			if err := f.parseSingleDash(arg, arguments, &i); err != nil { return err }
		}
	}
	return nil
}

// setFlag assigns a value to flag, taking it from the next argument when
// the flag is not a boolean and none was attached.
func setFlag(flag *Flag, display string, value *string, arguments []string, i *int) error {
	if value != nil { return flag.Value.Set(*value) }
	if flag.isBool() { return flag.Value.Set("") }
	if *i+1 >= len(arguments) { return fmt.Errorf("flag needs an argument: %s", display) }
	*i++
	return flag.Value.Set(arguments[*i])
}

func splitValue(s string) (string, *string) {
	name, value, ok := strings.Cut(s, "=")
	if !ok { return name, nil }
	return name, &value
}

func (f *FlagSet) parseLong(body string, arguments []string, i *int) error {
	name, value := splitValue(body)
	if name == "" { return fmt.Errorf("empty flag name") }
	flag, ok := f.flags[name]
	if !ok { return fmt.Errorf("unknown flag: --%s", name) }
	return setFlag(flag, "--"+name, value, arguments, i)
}

// parseSingleDash accepts -name, -name=value, prefix flags and shorthands,
// in that order.
func (f *FlagSet) parseSingleDash(arg string, arguments []string, i *int) error {
	name, value := splitValue(arg[1:])
	if flag, ok := f.flags[name]; ok {
		if _, special := f.specialPrefix[name]; !special {
			return setFlag(flag, "-"+name, value, arguments, i)
		}
	}

	for prefix, flag := range f.specialPrefix {
		if strings.HasPrefix(arg, "-"+prefix) && len(arg) > len(prefix)+1 {
			return flag.Value.Set(arg[len(prefix)+1:])
		}
	}

	short := arg[1:2]
	flag, ok := f.shorthands[short]
	if !ok { return fmt.Errorf("unknown shorthand flag: -%s", short) }
	if flag.isBool() { return flag.Value.Set("") }
	if rest := arg[2:]; rest != "" { return flag.Value.Set(strings.TrimPrefix(rest, "=")) }
	return setFlag(flag, "-"+short, nil, arguments, i)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name), Stdout: os.Stdout, Stderr: os.Stderr}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		a.writeUsage(a.Stderr)
		return err
	}
	if help {
		a.writeHelp(a.Stdout)
		return nil
	}
	if a.Action != nil { return a.Action(a.FlagSet.Args()) }
	return nil
}

const indentUnit = "    "

func (a *App) writeUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s %s\n", a.Name, a.Synopsis)
	fmt.Fprintf(w, "Run '%s --help' for all available options and flags.\n", a.Name)
}

func (a *App) writeHelp(w io.Writer) {
	var sb strings.Builder
	width := terminalWidth(w)
	options := a.optionFlags()
	left := a.leftColumnWidth(options)

	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\n%sCopyright (c) %s and contributors\n", indentUnit, strings.Join(a.Authors, ", "))
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentUnit, a.Repository)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indentUnit, indentUnit+indentUnit, a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indentUnit)
		for _, line := range wrapText(a.Description, width-2*len(indentUnit)) {
			fmt.Fprintf(&sb, "%s%s\n", indentUnit+indentUnit, line)
		}
	}

	if len(options) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indentUnit)
		for _, flag := range options {
			right := ""
			if !flag.isBool() && flag.DefValue != "" {
				right = "|" + flag.DefValue + "|"
			}
			writeEntry(&sb, width, left, formatFlag(flag), flag.Usage, right)
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		writeGroup(&sb, width, left, g)
	}
	fmt.Fprint(w, sb.String())
}

// optionFlags lists the flags not belonging to a group or prefix, by name.
func (a *App) optionFlags() []*Flag {
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}

	var out []*Flag
	for name, flag := range a.FlagSet.flags {
		if _, special := a.FlagSet.specialPrefix[name]; special || grouped[name] { continue }
		out = append(out, flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (a *App) leftColumnWidth(options []*Flag) int {
	width := 0
	for _, flag := range options {
		width = max(width, len(formatFlag(flag)))
	}
	for _, g := range a.FlagSet.flagGroups {
		if len(g.Flags) == 0 { continue }
		width = max(width, len(groupSwitch(g, true)))
		for _, e := range g.Flags {
			width = max(width, len(e.Name))
		}
	}
	return width
}

func formatFlag(flag *Flag) string {
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", flag.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if !flag.isBool() && flag.ExpectedType != "" {
		fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
	}
	return sb.String()
}

func groupSwitch(g FlagGroup, negated bool) string {
	no := ""
	if negated {
		no = "no-"
	}
	return fmt.Sprintf("-%s%s<%s>", g.Flags[0].Prefix, no, g.GroupType)
}

func writeGroup(sb *strings.Builder, width, left int, g FlagGroup) {
	if len(g.Flags) == 0 { return }
	fmt.Fprintf(sb, "\n%s%s\n", indentUnit, g.Name)
	writeEntry(sb, width, left, groupSwitch(g, false), "Enable a specific "+g.GroupType, "")
	writeEntry(sb, width, left, groupSwitch(g, true), "Disable a specific "+g.GroupType, "")

	entries := append([]FlagGroupEntry(nil), g.Flags...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		mark := "|-|"
		if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
			mark = "|x|"
		}
		writeEntry(sb, width, left, e.Name, e.Usage, mark)
	}
}

// writeEntry prints one help row, wrapping the usage text under itself.
func writeEntry(sb *strings.Builder, width, left int, name, usage, right string) {
	indent := indentUnit + indentUnit
	avail := max(width-len(indent)-left-1-len(right)-2, 10)
	lines := wrapText(usage, avail)
	if len(lines) == 0 {
		lines = []string{""}
	}

	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent, left, name, avail, lines[0], right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent, left, name, lines[0])
	}
	pad := strings.Repeat(" ", left+1)
	for _, line := range lines[1:] {
		fmt.Fprintf(sb, "%s%s%s\n", indent, pad, line)
	}
}

// terminalWidth is the width of w when it is a terminal, and 80 otherwise.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { return 80 }
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil { return 80 }
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 { return nil }
	if maxWidth <= 0 { return []string{text} }

	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() > 0 && line.Len()+len(word)+1 > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
