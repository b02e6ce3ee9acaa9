/*
Package dsl provides a Go DSL for programmatically constructing Arbor canvases.

It builds the initial elements of a canvas with a fluent builder instead of a YAML
layout file. This is useful for tests, for embedding Arbor in another program and
for generating layouts on the fly.

Example usage:

	b := dsl.New()

	b.Add("header").
		Type("text").
		Name("Header")

	contact := b.Add("contact").Type("group")
	contact.Child("email").Type("text").In("contact-body")
	contact.Child("phone").Type("text").In("contact-body").Set("mask", "(99) 9999-9999")

	// The loader can be passed to arbor.WithLayoutLoader.
	loader, err := b.Build()
*/
package dsl
