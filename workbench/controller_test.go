package workbench_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/jartest"
	"github.com/swind/go-enigma/source"
	"github.com/swind/go-enigma/workbench"
)

var pub = classfile.AccPublic

var (
	player    = entry.NewClassEntry("com/game/Player")
	playerObf = entry.NewClassEntry("a")
	health    = entry.NewFieldEntry(player, "health", "I")
)

func cls(name string) entry.ClassEntry { return entry.NewClassEntry(name) }

func method(owner, name, sig string) entry.MethodEntry {
	return entry.NewMethodEntry(cls(owner), name, entry.Signature(sig))
}

func playerJar(t *testing.T) string {
	a := jartest.NewClass("a").InnerClass("a$b", "a", "b", pub)
	a.Field(classfile.AccPrivate, "a", "I")
	a.Method(pub, "<init>", "(I)V")
	a.Method(pub, "a", "(La;)V").GetField("a", "a", "I")
	a.Method(pub, "b", "()V").InvokeStatic("java/lang/System", "gc", "()V")
	inner := jartest.NewClass("a$b").InnerClass("a$b", "a", "b", pub)
	iface := jartest.NewClass("i").Interface()
	iface.Method(pub|classfile.AccAbstract, "run", "()V")
	c := jartest.NewClass("c").Extends("a").Implements("i")
	c.Method(pub, "b", "()V")
	c.Method(pub, "run", "()V")
	return jartest.WriteJar(t, jartest.Classes(a, inner, iface, c))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func open(t *testing.T, mappings string) *workbench.Controller {
	t.Helper()
	c := workbench.New(workbench.WithLogger(jartest.Quiet), workbench.WithWorkers(2))
	require.NoError(t, c.OpenJar(context.Background(), playerJar(t), nil))
	t.Cleanup(c.CloseJar)
	if mappings != "" {
		report, err := c.OpenMappings(writeFile(t, "game.mappings", mappings))
		require.NoError(t, err)
		require.True(t, report.Empty(), report.Lines())
	}
	return c
}

func texts(v *workbench.View, tokens []source.Token) map[string]int {
	out := make(map[string]int)
	for _, tok := range tokens {
		out[v.Index.Text(tok)]++
	}
	return out
}

func tokenFor(t *testing.T, v *workbench.View, text string) source.Token {
	t.Helper()
	for _, tok := range v.Index.ReferenceTokens() {
		if v.Index.Text(tok) == text {
			return tok
		}
	}
	t.Fatalf("no token %q in\n%s", text, v.Source())
	return source.Token{}
}

const healthMappings = "CLASS a com/game/Player\n\tFIELD a health I\n"

func TestNoJar(t *testing.T) {
	c := workbench.New(workbench.WithLogger(jartest.Quiet))
	ctx := context.Background()

	_, err := c.OpenClass(ctx, playerObf)
	assert.ErrorIs(t, err, workbench.ErrNoJar)
	_, _, err = c.SeparatedClasses()
	assert.ErrorIs(t, err, workbench.ErrNoJar)
	_, err = c.OpenMappings("missing.mappings")
	assert.ErrorIs(t, err, workbench.ErrNoJar)
	assert.ErrorIs(t, c.Rename(ctx, entry.DeclarationReference(playerObf), "Player"), workbench.ErrNoJar)
	assert.Nil(t, c.Current())
	assert.False(t, c.EntryIsInJar(playerObf))
	_, ok := c.TokenAt(0)
	assert.False(t, ok)
}

func TestOpenJarFailureKeepsSession(t *testing.T) {
	c := open(t, "")
	err := c.OpenJar(context.Background(), filepath.Join(t.TempDir(), "missing.jar"), nil)
	assert.Error(t, err)
	x, err := c.Index()
	require.NoError(t, err)
	assert.Equal(t, 4, x.Len())
}

func TestOpenClassHighlights(t *testing.T) {
	c := open(t, healthMappings)

	v, err := c.OpenClass(context.Background(), player)
	require.NoError(t, err)
	assert.Equal(t, playerObf, v.Class)
	assert.Same(t, v, c.Current())
	assert.Contains(t, v.Source(), "package com.game;\n\npublic class Player {\n\tprivate int health;\n")
	assert.Contains(t, v.Source(), "public Player(int arg0) {}")
	assert.Contains(t, v.Source(), "// com.game.Player.health")

	deobf := texts(v, v.Deobfuscated)
	assert.Equal(t, 2, deobf["Player"], "class and constructor")
	assert.Equal(t, 2, deobf["health"])
	assert.Equal(t, 2, deobf["com.game.Player"])

	obf := texts(v, v.Obfuscated)
	assert.Equal(t, 1, obf["a"])
	assert.Equal(t, 2, obf["b"], "method and inner class")
	assert.Equal(t, 2, obf["arg0"])

	other := texts(v, v.Other)
	assert.Equal(t, map[string]int{"java.lang.System": 1, "gc": 1}, other)
}

func TestOpenInnerClassShowsOuter(t *testing.T) {
	c := open(t, healthMappings)
	v, err := c.OpenClass(context.Background(), cls("com/game/Player$b"))
	require.NoError(t, err)
	assert.Equal(t, playerObf, v.Class)

	_, err = c.OpenClass(context.Background(), cls("java/lang/Object"))
	assert.ErrorIs(t, err, enigmaerr.ErrUnknownOwner)
	assert.Equal(t, playerObf, c.Current().Class)
}

func TestTokensAndReferences(t *testing.T) {
	c := open(t, healthMappings)
	v, err := c.OpenClass(context.Background(), player)
	require.NoError(t, err)

	tok := tokenFor(t, v, "health")
	got, ok := c.TokenAt(tok.Start)
	require.True(t, ok)
	assert.Equal(t, tok, got)
	readable, ok := c.ReadableToken(tok)
	require.True(t, ok)
	assert.Equal(t, source.ReadableToken{Line: 4, StartColumn: 14, EndColumn: 20}, readable)

	ref, ok := c.DeobfReference(tok)
	require.True(t, ok)
	assert.Equal(t, entry.DeclarationReference(health), ref)
	assert.True(t, c.ReferenceIsRenameable(ref))
	assert.True(t, c.EntryHasDeobfuscatedName(health))
	assert.True(t, c.EntryIsInJar(health))

	obf, err := c.ObfuscateReference(ref)
	require.NoError(t, err)
	assert.Equal(t, entry.NewFieldEntry(playerObf, "a", "I"), obf.Entry)
	back, err := c.DeobfuscateReference(obf)
	require.NoError(t, err)
	assert.Equal(t, ref, back)

	gc, ok := c.DeobfReference(tokenFor(t, v, "gc"))
	require.True(t, ok)
	assert.False(t, c.ReferenceIsRenameable(gc))
	assert.False(t, c.EntryIsInJar(gc.Entry))
}

func TestRenameThroughReference(t *testing.T) {
	c := open(t, healthMappings)
	ctx := context.Background()
	v, err := c.OpenClass(ctx, player)
	require.NoError(t, err)
	assert.False(t, c.IsDirty())

	ref, ok := c.DeobfReference(tokenFor(t, v, "a"))
	require.True(t, ok)
	require.NoError(t, c.Rename(ctx, ref, "copy"))
	assert.True(t, c.IsDirty())

	cur := c.Current()
	assert.Greater(t, cur.Generation, v.Generation)
	assert.Contains(t, cur.Source(), "public void copy(com.game.Player arg0) {")
	assert.Equal(t, 1, texts(cur, cur.Deobfuscated)["copy"])

	err = c.Rename(ctx, entry.DeclarationReference(health), "not a name")
	assert.ErrorIs(t, err, enigmaerr.ErrInvalidName)

	path := filepath.Join(t.TempDir(), "out.mappings")
	require.NoError(t, c.SaveMappings(path))
	assert.False(t, c.IsDirty())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "METHOD a copy (La;)V")

	copyRef := entry.DeclarationReference(method("com/game/Player", "copy", "(Lcom/game/Player;)V"))
	require.NoError(t, c.RemoveMapping(ctx, copyRef))
	assert.True(t, c.IsDirty())
	assert.Contains(t, c.Current().Source(), "public void a(com.game.Player arg0) {")

	require.NoError(t, c.MarkAsDeobfuscated(ctx, entry.DeclarationReference(method("com/game/Player", "b", "()V"))))
	cur = c.Current()
	assert.Equal(t, 1, texts(cur, cur.Deobfuscated)["b"])
	assert.Equal(t, 1, texts(cur, cur.Obfuscated)["b"], "the inner class keeps its name")
}

func TestMappingsLifecycle(t *testing.T) {
	c := open(t, "")
	ctx := context.Background()

	obf, deobf, err := c.SeparatedClasses()
	require.NoError(t, err)
	assert.Equal(t, []entry.ClassEntry{cls("a"), cls("c"), cls("i")}, obf)
	assert.Empty(t, deobf)

	report, err := c.OpenMappings(writeFile(t, "game.mappings", healthMappings+"CLASS zz Gone\n"))
	require.NoError(t, err)
	assert.Equal(t, []entry.ClassEntry{cls("zz")}, report.Classes)
	assert.False(t, c.IsDirty())

	obf, deobf, err = c.SeparatedClasses()
	require.NoError(t, err)
	assert.Equal(t, []entry.ClassEntry{cls("c"), cls("i")}, obf)
	assert.Equal(t, []entry.ClassEntry{player}, deobf)

	v, err := c.OpenClass(ctx, player)
	require.NoError(t, err)
	require.NoError(t, c.CloseMappings())
	assert.False(t, c.IsDirty())
	cur := c.Current()
	assert.Greater(t, cur.Generation, v.Generation)
	assert.Contains(t, cur.Source(), "public class a {\n\tprivate int a;\n")

	_, err = c.OpenMappings(writeFile(t, "bad.mappings", "FIELD a b I\n"))
	var lineErr *enigmaerr.LineError
	assert.ErrorAs(t, err, &lineErr)
}

func TestNavigation(t *testing.T) {
	c := open(t, healthMappings)
	ctx := context.Background()

	tokens, err := c.OpenDeclaration(ctx, health)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	v := c.Current()
	assert.Equal(t, playerObf, v.Class)
	assert.Equal(t, "health", v.Index.Text(tokens[0]))

	assert.False(t, c.HasPreviousLocation())
	require.NoError(t, c.SavePreviousReference(entry.DeclarationReference(health)))
	assert.True(t, c.HasPreviousLocation())

	_, err = c.OpenClass(ctx, cls("c"))
	require.NoError(t, err)
	assert.Equal(t, cls("c"), c.Current().Class)

	tokens, err = c.OpenPreviousReference(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, playerObf, c.Current().Class)
	assert.False(t, c.HasPreviousLocation())

	tokens, err = c.OpenPreviousReference(ctx)
	assert.NoError(t, err)
	assert.Nil(t, tokens)

	use := entry.NewReference(health, player, method("com/game/Player", "a", "(Lcom/game/Player;)V"))
	tokens, err = c.OpenReference(ctx, use)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "health", c.Current().Index.Text(tokens[0]))
}

func TestTrees(t *testing.T) {
	c := open(t, healthMappings)

	tree, err := c.ClassInheritance(cls("c"))
	require.NoError(t, err)
	assert.Equal(t, player, tree.Entry)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, cls("c"), tree.Children[0].Entry)

	tree, err = c.ClassImplementations(cls("i"))
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, cls("c"), tree.Children[0].Entry)

	tree, err = c.MethodInheritance(method("c", "b", "()V"))
	require.NoError(t, err)
	assert.Equal(t, method("com/game/Player", "b", "()V"), tree.Entry)
	var depths []int
	tree.Walk(func(_ *jarindex.Node, depth int) { depths = append(depths, depth) })
	assert.Equal(t, []int{0, 1}, depths)

	tree, err = c.MethodInheritance(method("c", "missing", "()V"))
	require.NoError(t, err)
	assert.Nil(t, tree)

	tree, err = c.MethodImplementations(method("i", "run", "()V"))
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, method("c", "run", "()V"), tree.Children[0].Entry)

	refs, err := c.References(health)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, health, refs[0].Entry)
	assert.Equal(t, player, refs[0].LocationClass())
}

func TestFixNames(t *testing.T) {
	c := open(t, "")
	_, err := c.OpenClass(context.Background(), playerObf)
	require.NoError(t, err)

	n, err := c.FixNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.True(t, c.IsDirty())
	assert.Contains(t, c.Current().Source(), "private int field1;")
}

func TestExportSource(t *testing.T) {
	c := open(t, healthMappings)
	require.NoError(t, c.OpenRegexList(writeFile(t, "rules.txt", "a\tpublic class Player\tpublic final class Player\n")))

	dir := t.TempDir()
	report, err := c.ExportSource(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"com/game/Player.java", "c.java", "i.java"}, report.Written)
	assert.Empty(t, report.Failed)

	data, err := os.ReadFile(filepath.Join(dir, "com", "game", "Player.java"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "public final class Player {")
	assert.Contains(t, string(data), "public class b {")

	c.CloseRegexList()
	zipPath := filepath.Join(t.TempDir(), "sources.zip")
	report, err = c.ExportSource(context.Background(), zipPath, nil)
	require.NoError(t, err)
	assert.Len(t, report.Written, 3)
	_, err = os.Stat(zipPath)
	assert.NoError(t, err)
}

func TestExportSourceCanceled(t *testing.T) {
	c := open(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ExportSource(ctx, t.TempDir(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrace(t *testing.T) {
	c := open(t, healthMappings)

	var out strings.Builder
	err := c.Retrace(strings.NewReader("java.lang.RuntimeException: a\n\tat a.a(SourceFile:3)\n\tat c.run(SourceFile:9)\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "java.lang.RuntimeException: com.game.Player\n"+
		"\tat com.game.Player.a(Player.java:3)\n"+
		"\tat c.run(c.java:9)\n", out.String())

	assert.ErrorIs(t, workbench.New().Retrace(strings.NewReader(""), &out), workbench.ErrNoJar)
}
