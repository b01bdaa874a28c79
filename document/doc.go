// Package document loads trees of model nodes from YAML or JSON and writes
// them back.
//
// A document node has a name, variables, properties and children:
//
//	name: dashboard
//	variables:
//	  user: {name: World}
//	  count: 3
//	properties:
//	  title: Hello ${user.name}
//	  size: ${count}
//	children:
//	  - name: panel
//	    variables: {count: 5}
//	    properties:
//	      label: Panel \${literal} ${count}
//	      style: {width: "${count}", color: red}
//
// Each node becomes a scope of a [model.Tree]. Its variables are set in a
// [variable.Manager] and property strings containing expressions are bound
// as references, so they track later changes to the variables they use.
// [Document.Save] writes the expressions back out and [Document.Resolved]
// returns the current values instead.
package document
