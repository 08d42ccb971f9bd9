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

const indentUnit = "    "

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
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

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

// FlagGroup is a family of on/off switches sharing a prefix, such as -W
// warnings or -F features. Every entry gets a -<prefix><name> and a
// -<prefix>no-<name> flag.
type FlagGroup struct {
	Name        string
	Description string
	GroupType   string
	Header      string
	Flags       []FlagGroupEntry
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     []FlagGroup
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
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

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, header string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.groups = append(f.groups, FlagGroup{Name: name, Description: description, GroupType: groupType, Header: header, Flags: entries})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// Parse accepts --name, --name=value, -name (for group switches such as
// -Wshadow), -s value and -svalue. Everything else is positional.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}

		var err error
		if strings.HasPrefix(arg, "--") {
			err = f.parseLong(arg[2:], "--", arguments, &i)
		} else if name, _, _ := strings.Cut(arg[1:], "="); f.flags[name] != nil {
			err = f.parseLong(arg[1:], "-", arguments, &i)
		} else {
			err = f.parseShort(arg, arguments, &i)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *FlagSet) parseLong(body, dashes string, arguments []string, i *int) error {
	name, value, hasValue := strings.Cut(body, "=")
	if name == "" {
		return fmt.Errorf("empty flag name")
	}
	flag, ok := f.flags[name]
	if !ok {
		return fmt.Errorf("unknown flag: %s%s", dashes, name)
	}
	switch {
	case hasValue:
		return flag.Value.Set(value)
	case flag.isBool():
		return flag.Value.Set("")
	case *i+1 >= len(arguments):
		return fmt.Errorf("flag needs an argument: %s%s", dashes, name)
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

func (f *FlagSet) parseShort(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown shorthand flag: -%s", shorthand)
	}
	if flag.isBool() {
		return flag.Value.Set("")
	}
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	return flag.Value.Set(value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error

	Stdout io.Writer
	Stderr io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
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
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

type layout struct {
	termWidth  int
	leftWidth  int
	usageWidth int
}

func (a *App) newLayout() layout {
	l := layout{termWidth: terminalWidth()}
	grow := func(w *int, s string) {
		if len(s) > *w {
			*w = len(s)
		}
	}
	for _, flag := range a.optionFlags() {
		grow(&l.leftWidth, formatFlag(flag))
		grow(&l.usageWidth, flag.Usage)
	}
	for _, g := range a.FlagSet.groups {
		grow(&l.leftWidth, fmt.Sprintf("-%sno-<%s>", g.prefix(), g.GroupType))
		for _, e := range g.Flags {
			grow(&l.leftWidth, e.Name)
			grow(&l.usageWidth, e.Usage)
		}
	}
	return l
}

func (g FlagGroup) prefix() string {
	if len(g.Flags) == 0 {
		return ""
	}
	return g.Flags[0].Prefix
}

func (a *App) writeUsage(w io.Writer) {
	var sb strings.Builder
	l := a.newLayout()
	fmt.Fprintf(&sb, "Usage: %s <options> [input.mc] ...\n", a.Name)
	a.writeOptions(&sb, l)
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	fmt.Fprint(w, sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	var sb strings.Builder
	l := a.newLayout()

	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\n%sCopyright (c): %s and contributors\n", indentUnit, strings.Join(a.Authors, ", "))
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentUnit, a.Repository)
	}
	if a.Synopsis != "" {
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indentUnit, indentUnit+indentUnit, a.Name, synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n%s%s\n", indentUnit, indentUnit+indentUnit, a.Description)
	}
	a.writeOptions(&sb, l)

	groups := append([]FlagGroup(nil), a.FlagSet.groups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		a.writeGroup(&sb, g, l)
	}
	fmt.Fprint(w, sb.String())
}

func (a *App) writeOptions(sb *strings.Builder, l layout) {
	flags := a.optionFlags()
	if len(flags) == 0 {
		return
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	fmt.Fprintf(sb, "\n%sOptions\n", indentUnit)
	for _, flag := range flags {
		right := ""
		if !flag.isBool() && flag.DefValue != "" && flag.DefValue != "[]" {
			right = "|" + flag.DefValue + "|"
		}
		l.entry(sb, formatFlag(flag), flag.Usage, right)
	}
}

func (a *App) writeGroup(sb *strings.Builder, g FlagGroup, l layout) {
	fmt.Fprintf(sb, "\n%s%s\n", indentUnit, g.Name)
	pad := indentUnit + indentUnit
	fmt.Fprintf(sb, "%s%-*s Enable a specific %s\n", pad, l.leftWidth, fmt.Sprintf("-%s<%s>", g.prefix(), g.GroupType), g.GroupType)
	fmt.Fprintf(sb, "%s%-*s Disable a specific %s\n", pad, l.leftWidth, fmt.Sprintf("-%sno-<%s>", g.prefix(), g.GroupType), g.GroupType)
	if g.Header != "" {
		fmt.Fprintf(sb, "%s%s\n", indentUnit, g.Header)
	}

	entries := append([]FlagGroupEntry(nil), g.Flags...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		state := "|-|"
		if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
			state = "|x|"
		}
		l.entry(sb, e.Name, e.Usage, state)
	}
}

// optionFlags lists the flags that are not generated by a flag group.
func (a *App) optionFlags() []*Flag {
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.groups {
		for _, e := range g.Flags {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	var flags []*Flag
	for name, flag := range a.FlagSet.flags {
		if !grouped[name] {
			flags = append(flags, flag)
		}
	}
	return flags
}

func formatFlag(flag *Flag) string {
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s", flag.Shorthand)
		if !flag.isBool() {
			fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
		}
		sb.WriteString(", ")
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if !flag.isBool() && flag.ExpectedType != "" {
		if flag.Shorthand != "" {
			fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
		} else {
			fmt.Fprintf(&sb, "=%s", flag.ExpectedType)
		}
	}
	return sb.String()
}

func (l layout) entry(sb *strings.Builder, left, usage, right string) {
	pad := indentUnit + indentUnit
	avail := l.termWidth - len(pad) - l.leftWidth - 3 - len(right)
	if avail < 10 {
		avail = 10
	}
	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}
	if right != "" {
		width := min(l.usageWidth, avail)
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", pad, l.leftWidth, left, width, first, right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", pad, l.leftWidth, left, first)
	}
	cont := strings.Repeat(" ", l.leftWidth+1)
	for _, line := range lines[min(1, len(lines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", pad, cont, line)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
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
