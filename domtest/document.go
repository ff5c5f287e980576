package domtest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// newDocument returns the script facing document object. It supports
// getElementById and querySelector, and elements expose id, tagName,
// textContent and getAttribute.
func newDocument(vm *goja.Runtime, doc *goquery.Document) *goja.Object {
	d := vm.NewObject()
	_ = d.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		sel := doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("id")
			return v == id
		})
		return elementOrNull(vm, doc, sel)
	})
	_ = d.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return elementOrNull(vm, doc, doc.Find(call.Argument(0).String()))
	})
	_ = d.DefineAccessorProperty("title", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(strings.TrimSpace(doc.Find("title").First().Text()))
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	return d
}

func elementOrNull(vm *goja.Runtime, doc *goquery.Document, sel *goquery.Selection) goja.Value {
	if sel.Length() == 0 {
		return goja.Null()
	}
	return newElement(vm, doc, sel.Get(0))
}

func newElement(vm *goja.Runtime, doc *goquery.Document, n *html.Node) *goja.Object {
	el := vm.NewObject()
	sel := doc.FindNodes(n)

	id, _ := sel.Attr("id")
	_ = el.Set("id", id)
	_ = el.Set("tagName", strings.ToUpper(n.Data))
	_ = el.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := sel.Attr(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = el.DefineAccessorProperty("textContent",
		vm.ToValue(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(textContent(doc, n))
		}),
		vm.ToValue(func(call goja.FunctionCall) goja.Value {
			v := call.Argument(0)
			text := ""
			if !goja.IsNull(v) && !goja.IsUndefined(v) {
				text = v.String()
			}
			setTextContent(n, text)
			return goja.Undefined()
		}),
		goja.FLAG_FALSE, goja.FLAG_TRUE,
	)

	return el
}
