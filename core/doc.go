/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package core provides the core gear for a forward-chaining
// production-rule engine over a typed in-memory fact base.
//
// The primary types are WorkingMemory, Condition, Rule, and Engine. A
// Condition is a tree built from atomic type tests, beta tests, and
// the logical combinators All/Any/Not/Exists, optionally wrapping an
// Accumulate. Engine.AddRule compiles a Condition into a node network
// once; Engine.Run then repeatedly promotes dirty types, evaluates
// each rule's network into an agenda of candidate matches, resolves
// conflicts (salience, then recency, then a lexicographic signature
// tie-break), and fires the resulting actions until the fact base
// reaches a fixed point, a cycle limit is reached, or nothing new can
// fire because everything already fired once (refraction).
//
// Actions are plain Go closures: they receive the matched facts, the
// bindings, and an EngineHandle they can use to add, update, or
// remove facts. Actions should not block or perform unbounded work;
// the engine runs them synchronously on the calling goroutine and is
// not reentrant.
package core
