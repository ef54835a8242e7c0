package skeleton_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jartest"
	"github.com/swind/go-enigma/source"
	"github.com/swind/go-enigma/source/skeleton"
)

const playerSource = `public class a {
	private int a;

	public a(int arg0) {}

	public void a(a arg0) {
		// a.a
	}

	public class b {
	}
}
`

func TestDecompile(t *testing.T) {
	a := jartest.NewClass("a").InnerClass("a$b", "a", "b", classfile.AccPublic)
	a.Field(classfile.AccPrivate, "a", "I")
	a.Method(classfile.AccPublic, "<init>", "(I)V")
	a.Method(classfile.AccPublic, "a", "(La;)V").GetField("a", "a", "I")
	inner := jartest.NewClass("a$b").InnerClass("a$b", "a", "b", classfile.AccPublic)
	x := jartest.Index(t, a, inner)

	u, err := skeleton.New(x).Decompile(context.Background(), entry.NewClassEntry("a"))
	require.NoError(t, err)
	assert.Equal(t, playerSource, u.Source)

	texts := make(map[string][]source.Form)
	for _, sp := range u.Spans {
		text := u.Source[sp.Token.Start:sp.Token.End]
		texts[text] = append(texts[text], sp.Form)
	}
	assert.Equal(t, []source.Form{source.Package}, texts[""])
	assert.Len(t, texts["arg0"], 2)
	assert.Len(t, texts["b"], 1)

	method := entry.NewMethodEntry(entry.NewClassEntry("a"), "a", "(La;)V")
	index := source.NewIndex(u)
	assert.Len(t, index.DeclarationTokens(method), 1)
	field := entry.NewFieldEntry(entry.NewClassEntry("a"), "a", "I")
	uses := index.Tokens(entry.NewReference(field, entry.NewClassEntry("a"), method))
	require.Len(t, uses, 1)
	assert.Equal(t, "a", index.Text(uses[0]))
}

func TestDecompileHeaders(t *testing.T) {
	iface := jartest.NewClass("p/I").Interface()
	iface.Method(classfile.AccPublic|classfile.AccAbstract, "run", "()V")
	impl := jartest.NewClass("p/C").Access(classfile.AccPublic|classfile.AccFinal).Extends("p/B").Implements("p/I")
	impl.Method(classfile.AccPublic, "run", "()V").New("p/B", "()V").InvokeStatic("java/lang/System", "gc", "()V")
	impl.Method(classfile.AccStatic, "<clinit>", "()V")
	x := jartest.Index(t, iface, jartest.NewClass("p/B"), impl)

	d := skeleton.New(x)
	u, err := d.Decompile(context.Background(), entry.NewClassEntry("p/I"))
	require.NoError(t, err)
	assert.Equal(t, "package p;\n\npublic interface I {\n\n\tpublic void run();\n}\n", u.Source)

	u, err = d.Decompile(context.Background(), entry.NewClassEntry("p/C"))
	require.NoError(t, err)
	assert.Equal(t, `package p;

public final class C extends p.B implements p.I {

	public void run() {
		// new p.B()
		// java.lang.System.gc()
	}

	static {}
}
`, u.Source)
}

func TestDecompileMissingClass(t *testing.T) {
	x := jartest.Index(t, jartest.NewClass("a"))
	_, err := skeleton.New(x).Decompile(context.Background(), entry.NewClassEntry("java/lang/Object"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = skeleton.New(x).Decompile(ctx, entry.NewClassEntry("a"))
	assert.ErrorIs(t, err, context.Canceled)
}
