/*
Package wire converts between the runtime's JSON documents and the domain types.

It owns one compatibility shim: older runtimes send speak traces without a
subtype tag, in which case the subtype is inferred from the message markup.
A message whose first element is an <audio src="..."> tag becomes an audio
speak trace with that source; anything else becomes a plain message.
*/
package wire
